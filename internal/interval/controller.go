package interval

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/2beens/powerhit/internal/exercises"
	"github.com/2beens/powerhit/internal/telemetry/metrics"
	"github.com/2beens/powerhit/internal/workout"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTickInterval          = time.Second
	defaultCompletionWaitTimeout = 10 * time.Second
)

var (
	ErrEmptyPlan        = errors.New("workout plan is empty")
	ErrControllerClosed = errors.New("controller closed")
)

type ControllerParams struct {
	TickInterval time.Duration
	Recorder     CompletionRecorder
	// RecordTimeout bounds a single completion write.
	RecordTimeout time.Duration
	// Metrics is optional.
	Metrics *metrics.Manager
	// NewTicker and Now are replaced in tests.
	NewTicker func(d time.Duration) Ticker
	Now       func() time.Time
}

// Snapshot is a consistent view of the controller taken on its loop.
type Snapshot struct {
	State        State               `json:"state"`
	PlanLength   int                 `json:"planLength"`
	Exercise     *exercises.Exercise `json:"exercise,omitempty"`
	NextExercise *exercises.Exercise `json:"nextExercise,omitempty"`
	Run          *Run                `json:"run,omitempty"`
	Warning      string              `json:"warning,omitempty"`
}

type recordResult struct {
	runID uuid.UUID
	err   error
}

// Controller runs workout plans through the interval state machine. A single
// loop goroutine owns all state, ticks and user commands are serialized on it.
type Controller struct {
	tickInterval  time.Duration
	recorder      CompletionRecorder
	recordTimeout time.Duration
	metrics       *metrics.Manager
	now           func() time.Time

	ticker        Ticker
	commands      chan func()
	recordResults chan recordResult
	quit          chan struct{}
	done          chan struct{}
	closeOnce     sync.Once

	// loop owned
	plan        workout.Plan
	state       State
	run         *Run
	warning     string
	subscribers map[int]*subscriber
	nextSubID   int
}

func NewController(params ControllerParams) *Controller {
	if params.TickInterval <= 0 {
		params.TickInterval = DefaultTickInterval
	}
	if params.RecordTimeout <= 0 {
		params.RecordTimeout = defaultCompletionWaitTimeout
	}
	if params.NewTicker == nil {
		params.NewTicker = newTimeTicker
	}
	if params.Now == nil {
		params.Now = time.Now
	}

	c := &Controller{
		tickInterval:  params.TickInterval,
		recorder:      params.Recorder,
		recordTimeout: params.RecordTimeout,
		metrics:       params.Metrics,
		now:           params.Now,
		ticker:        params.NewTicker(params.TickInterval),
		commands:      make(chan func()),
		recordResults: make(chan recordResult),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		subscribers:   make(map[int]*subscriber),
	}

	go c.loop()

	return c
}

func (c *Controller) loop() {
	defer close(c.done)
	defer c.ticker.Stop()
	defer func() {
		for id, sub := range c.subscribers {
			close(sub.events)
			delete(c.subscribers, id)
		}
	}()

	for {
		select {
		case <-c.quit:
			return
		case cmd := <-c.commands:
			cmd()
		case <-c.ticker.C():
			c.apply(ActionTick)
		case res := <-c.recordResults:
			c.handleRecordResult(res)
		}
	}
}

// exec runs fn on the loop and waits for it to finish.
func (c *Controller) exec(fn func()) error {
	finished := make(chan struct{})
	select {
	case c.commands <- func() {
		fn()
		close(finished)
	}:
	case <-c.done:
		return ErrControllerClosed
	}
	<-finished
	return nil
}

// Start begins a new run of plan. An active run is discarded and restarted.
func (c *Controller) Start(plan workout.Plan) error {
	if plan.Empty() {
		return ErrEmptyPlan
	}
	return c.exec(func() {
		c.plan = plan
		c.warning = ""
		c.run = &Run{
			ID:        uuid.New(),
			Date:      plan.Date,
			StartedAt: c.now(),
		}
		if c.metrics != nil {
			c.metrics.CounterWorkoutsStarted.Inc()
		}
		log.Debugf("workout run %s started, %d exercises", c.run.ID, plan.Len())
		c.apply(ActionStart)
	})
}

func (c *Controller) Pause() error {
	return c.exec(func() { c.apply(ActionPause) })
}

func (c *Controller) Resume() error {
	return c.exec(func() { c.apply(ActionResume) })
}

func (c *Controller) Skip() error {
	return c.exec(func() { c.apply(ActionSkip) })
}

// Stop abandons the current run. Nothing is persisted.
func (c *Controller) Stop() error {
	return c.exec(func() {
		if c.state.Phase.Counting() && c.metrics != nil {
			c.metrics.CounterWorkoutsStopped.Inc()
		}
		c.apply(ActionStop)
		c.run = nil
		c.warning = ""
	})
}

func (c *Controller) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := c.exec(func() {
		snap = c.snapshot()
	})
	return snap, err
}

func (c *Controller) State() (State, error) {
	var s State
	err := c.exec(func() {
		s = c.state
	})
	return s, err
}

// Subscribe returns a channel of controller events and a func to cancel the
// subscription. The channel is closed on cancel and when the controller closes.
func (c *Controller) Subscribe() (<-chan Event, func(), error) {
	var sub *subscriber
	err := c.exec(func() {
		c.nextSubID++
		sub = &subscriber{
			id:     c.nextSubID,
			events: make(chan Event, subscriberBuffer),
		}
		c.subscribers[sub.id] = sub
	})
	if err != nil {
		return nil, nil, err
	}

	cancel := func() {
		// after close the loop already closed every subscriber channel
		_ = c.exec(func() {
			if _, ok := c.subscribers[sub.id]; ok {
				close(sub.events)
				delete(c.subscribers, sub.id)
			}
		})
	}
	return sub.events, cancel, nil
}

// Close stops the loop. An in-flight completion write is not waited for, its
// result is dropped.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	<-c.done
}

func (c *Controller) apply(action Action) {
	prev := c.state
	next, changes := Next(c.plan, prev, action)
	c.state = next

	if c.run != nil {
		c.trackRun(prev, action, changes)
	}

	c.adjustTicker(prev, next, action)

	if action == ActionTick && prev.Ticking() {
		c.publish(Event{Type: EventTick, State: next})
	}
	for i := range changes {
		change := changes[i]
		c.publish(Event{Type: EventPhaseChange, State: next, Change: &change})
		if change.To == PhaseCompleted {
			c.complete()
		}
	}
}

func (c *Controller) trackRun(prev State, action Action, changes []Change) {
	if action == ActionTick && prev.Ticking() {
		c.run.ElapsedSeconds++
	}
	if action == ActionSkip && prev.Phase == PhaseWorking {
		c.run.ExercisesSkipped++
	}
	for _, change := range changes {
		if change.From == PhaseWorking && change.To == PhaseResting {
			c.run.ExercisesCompleted++
		}
	}
}

// adjustTicker keeps the ticker running only while the countdown runs. A
// start, resume or skip begins a fresh full interval.
func (c *Controller) adjustTicker(prev, next State, action Action) {
	if !next.Ticking() {
		if prev.Ticking() {
			c.ticker.Stop()
		}
		return
	}
	switch action {
	case ActionStart, ActionResume, ActionSkip:
		c.ticker.Reset(c.tickInterval)
	}
}

func (c *Controller) complete() {
	c.run.FinishedAt = c.now()
	run := *c.run

	if c.metrics != nil {
		c.metrics.CounterWorkoutsCompleted.Inc()
	}
	log.Debugf("workout run %s completed: %d done, %d skipped, %ds", run.ID, run.ExercisesCompleted, run.ExercisesSkipped, run.ElapsedSeconds)

	c.publish(Event{Type: EventCompleted, State: c.state, Run: &run})

	if c.recorder == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.recordTimeout)
		defer cancel()

		err := c.recorder.RecordCompletion(ctx, run)
		select {
		case c.recordResults <- recordResult{runID: run.ID, err: err}:
		case <-c.quit:
			if err != nil {
				log.Warnf("record completion of run %s after close: %s", run.ID, err)
			}
		}
	}()
}

func (c *Controller) handleRecordResult(res recordResult) {
	// a new run might have started, or the run was stopped meanwhile
	if c.run == nil || c.run.ID != res.runID {
		log.Debugf("ignoring completion result of stale run %s", res.runID)
		return
	}

	if res.err != nil {
		log.Warnf("record completion of run %s: %s", res.runID, res.err)
		if c.metrics != nil {
			c.metrics.CounterCompletionWriteFailures.Inc()
		}
		c.warning = "workout completed, but saving progress failed"
		run := *c.run
		c.publish(Event{
			Type:    EventCompletionWarning,
			State:   c.state,
			Run:     &run,
			Message: c.warning,
		})
		return
	}

	run := *c.run
	c.publish(Event{Type: EventCompletionSaved, State: c.state, Run: &run})
}

func (c *Controller) publish(e Event) {
	for _, sub := range c.subscribers {
		if !sub.publish(e) {
			log.Debugf("subscriber %d is slow, dropped %s event", sub.id, e.Type)
		}
	}
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		State:      c.state,
		PlanLength: c.plan.Len(),
		Warning:    c.warning,
	}
	if c.run != nil {
		run := *c.run
		snap.Run = &run
	}
	if c.state.Phase.Counting() {
		current := c.plan.Exercises[c.state.ExerciseIndex]
		snap.Exercise = &current
		if c.state.ExerciseIndex+1 < c.plan.Len() {
			next := c.plan.Exercises[c.state.ExerciseIndex+1]
			snap.NextExercise = &next
		}
	}
	return snap
}
