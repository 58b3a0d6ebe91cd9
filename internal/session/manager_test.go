package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/2beens/powerhit/internal/exercises"
	"github.com/2beens/powerhit/internal/interval"
	"github.com/2beens/powerhit/internal/progress"
	"github.com/2beens/powerhit/internal/telemetry/metrics"
	"github.com/2beens/powerhit/internal/workout"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testDay = time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

type testPlanner struct {
	plan workout.Plan
	err  error
}

func (p *testPlanner) PlanFor(_ context.Context, date time.Time) (workout.Plan, error) {
	if p.err != nil {
		return workout.Plan{}, p.err
	}
	plan := p.plan
	plan.Date = workout.DateOf(date)
	return plan, nil
}

func (p *testPlanner) Today(time.Time) time.Time {
	return testDay
}

type completionCall struct {
	userID  int
	date    time.Time
	summary progress.Summary
}

type testTracker struct {
	mu    sync.Mutex
	calls chan completionCall
	err   error
	block chan struct{}
}

func newTestTracker() *testTracker {
	return &testTracker{calls: make(chan completionCall, 10)}
}

func (tr *testTracker) RecordCompletion(_ context.Context, userID int, date time.Time, summary progress.Summary) error {
	tr.calls <- completionCall{userID: userID, date: date, summary: summary}
	if tr.block != nil {
		<-tr.block
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.err
}

type manualTicker struct {
	c chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Reset(time.Duration) {}
func (t *manualTicker) Stop()               {}

func (t *manualTicker) tick(n int) {
	for i := 0; i < n; i++ {
		t.c <- time.Now()
	}
}

func testPlan(n, work, rest int) workout.Plan {
	var plan workout.Plan
	for i := 0; i < n; i++ {
		plan.Exercises = append(plan.Exercises, exercises.Exercise{
			ID:          fmt.Sprintf("ex-%d", i),
			WorkSeconds: work,
			RestSeconds: rest,
		})
	}
	return plan
}

// newTestManager gives every controller the same manual ticker.
func newTestManager(t *testing.T, planner planner, tracker completionTracker) (*Manager, *manualTicker, *metrics.Manager) {
	t.Helper()
	ticker := &manualTicker{c: make(chan time.Time)}
	m := metrics.NewTestManager()
	manager := NewManager(ManagerParams{
		Planner:   planner,
		Tracker:   tracker,
		Metrics:   m,
		NewTicker: func(time.Duration) interval.Ticker { return ticker },
	})
	t.Cleanup(manager.CloseAll)
	return manager, ticker, m
}

func TestManager_StartAndComplete(t *testing.T) {
	tracker := newTestTracker()
	manager, ticker, _ := newTestManager(t, &testPlanner{plan: testPlan(6, 45, 15)}, tracker)

	snap, err := manager.Start(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, interval.State{Phase: interval.PhaseWorking, SecondsRemaining: 45}, snap.State)
	assert.Equal(t, 6, snap.PlanLength)

	ticker.tick(360)

	call := <-tracker.calls
	assert.Equal(t, 11, call.userID)
	assert.Equal(t, testDay, call.date)
	assert.Equal(t, progress.Summary{ExercisesCompleted: 6, TotalDurationSeconds: 360}, call.summary)

	s, err := manager.Controller(11).State()
	require.NoError(t, err)
	assert.Equal(t, interval.PhaseCompleted, s.Phase)
}

func TestManager_StartErrors(t *testing.T) {
	manager, _, _ := newTestManager(t, &testPlanner{}, newTestTracker())
	_, err := manager.Start(context.Background(), 1)
	assert.ErrorIs(t, err, interval.ErrEmptyPlan)

	failing, _, _ := newTestManager(t, &testPlanner{err: errors.New("db down")}, newTestTracker())
	_, err = failing.Start(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, interval.ErrEmptyPlan)
}

func TestManager_ControllerPerUser(t *testing.T) {
	manager, _, m := newTestManager(t, &testPlanner{plan: testPlan(2, 10, 5)}, newTestTracker())

	a := manager.Controller(1)
	assert.Same(t, a, manager.Controller(1))
	b := manager.Controller(2)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, manager.Active())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.GaugeActiveSessions))

	manager.Teardown(1)
	assert.Equal(t, 1, manager.Active())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GaugeActiveSessions))
	_, err := a.State()
	assert.ErrorIs(t, err, interval.ErrControllerClosed)

	// tearing down an unknown user is a no-op
	manager.Teardown(99)
	assert.Equal(t, 1, manager.Active())
}

func TestManager_TeardownWithPendingCompletion(t *testing.T) {
	tracker := newTestTracker()
	tracker.block = make(chan struct{})
	manager, ticker, _ := newTestManager(t, &testPlanner{plan: testPlan(1, 1, 1)}, tracker)

	_, err := manager.Start(context.Background(), 5)
	require.NoError(t, err)
	ticker.tick(2)
	<-tracker.calls

	done := make(chan struct{})
	go func() {
		manager.Teardown(5)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("teardown waited for the completion write")
	}
	assert.Zero(t, manager.Active())

	tracker.mu.Lock()
	tracker.err = errors.New("late failure")
	tracker.mu.Unlock()
	close(tracker.block)
}
