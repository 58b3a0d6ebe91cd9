package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/powerhit/internal/interval"
	"github.com/2beens/powerhit/internal/progress"
	"github.com/2beens/powerhit/internal/telemetry/metrics"
	"github.com/2beens/powerhit/internal/workout"

	log "github.com/sirupsen/logrus"
)

type planner interface {
	PlanFor(ctx context.Context, date time.Time) (workout.Plan, error)
	Today(now time.Time) time.Time
}

type completionTracker interface {
	RecordCompletion(ctx context.Context, userID int, date time.Time, summary progress.Summary) error
}

type ManagerParams struct {
	Planner      planner
	Tracker      completionTracker
	Metrics      *metrics.Manager
	TickInterval time.Duration
	// NewTicker is replaced in tests.
	NewTicker func(d time.Duration) interval.Ticker
}

// Manager owns one interval controller per logged user.
type Manager struct {
	planner      planner
	tracker      completionTracker
	metrics      *metrics.Manager
	tickInterval time.Duration
	newTicker    func(d time.Duration) interval.Ticker
	now          func() time.Time

	mu          sync.Mutex
	controllers map[int]*interval.Controller
}

func NewManager(params ManagerParams) *Manager {
	return &Manager{
		planner:      params.Planner,
		tracker:      params.Tracker,
		metrics:      params.Metrics,
		tickInterval: params.TickInterval,
		newTicker:    params.NewTicker,
		now:          time.Now,
		controllers:  make(map[int]*interval.Controller),
	}
}

// Controller returns the user's controller, creating an idle one if needed.
func (m *Manager) Controller(userID int) *interval.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.controllers[userID]; ok {
		return c
	}

	c := interval.NewController(interval.ControllerParams{
		TickInterval: m.tickInterval,
		Recorder:     m.recorderFor(userID),
		Metrics:      m.metrics,
		NewTicker:    m.newTicker,
		Now:          m.now,
	})
	m.controllers[userID] = c
	if m.metrics != nil {
		m.metrics.GaugeActiveSessions.Set(float64(len(m.controllers)))
	}
	return c
}

func (m *Manager) recorderFor(userID int) interval.CompletionRecorder {
	return interval.CompletionRecorderFunc(func(ctx context.Context, run interval.Run) error {
		return m.tracker.RecordCompletion(ctx, userID, run.Date, progress.Summary{
			ExercisesCompleted:   run.ExercisesCompleted,
			TotalDurationSeconds: run.ElapsedSeconds,
		})
	})
}

// Start loads today's plan and starts a run of it.
func (m *Manager) Start(ctx context.Context, userID int) (interval.Snapshot, error) {
	plan, err := m.planner.PlanFor(ctx, m.planner.Today(m.now()))
	if err != nil {
		return interval.Snapshot{}, fmt.Errorf("load plan: %w", err)
	}

	c := m.Controller(userID)
	if err := c.Start(plan); err != nil {
		return interval.Snapshot{}, err
	}

	log.Debugf("user %d started a workout of %s", userID, plan.Date.Format(workout.DateLayout))
	return c.Snapshot()
}

// Teardown stops and forgets the user's controller. A completion write still
// in flight finishes in the background and its result is dropped.
func (m *Manager) Teardown(userID int) {
	m.mu.Lock()
	c, ok := m.controllers[userID]
	delete(m.controllers, userID)
	if m.metrics != nil {
		m.metrics.GaugeActiveSessions.Set(float64(len(m.controllers)))
	}
	m.mu.Unlock()

	if ok {
		c.Close()
		log.Debugf("workout session of user %d torn down", userID)
	}
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	controllers := m.controllers
	m.controllers = make(map[int]*interval.Controller)
	if m.metrics != nil {
		m.metrics.GaugeActiveSessions.Set(0)
	}
	m.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}
