package interval

import (
	"fmt"

	"github.com/2beens/powerhit/internal/workout"
)

type Action int

const (
	ActionStart Action = iota
	ActionTick
	ActionSkip
	ActionPause
	ActionResume
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionTick:
		return "tick"
	case ActionSkip:
		return "skip"
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	case ActionStop:
		return "stop"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Change is one phase transition caused by an action. A single tick can
// produce more than one, e.g. passing through a zero second rest.
type Change struct {
	From          Phase `json:"from"`
	To            Phase `json:"to"`
	ExerciseIndex int   `json:"exerciseIndex"`
}

// Next computes the state following s when action a is applied to a run of plan.
// It is total: any action valid or not yields a well defined state, and
// actions that make no sense in the current state leave it unchanged.
func Next(plan workout.Plan, s State, a Action) (State, []Change) {
	switch a {
	case ActionStart:
		if plan.Empty() {
			return s, nil
		}
		next := State{
			Phase:            PhaseWorking,
			ExerciseIndex:    0,
			SecondsRemaining: plan.Exercises[0].WorkSeconds,
		}
		return exhaust(plan, next, []Change{{From: s.Phase, To: PhaseWorking}})

	case ActionTick:
		if !s.Ticking() {
			return s, nil
		}
		if s.SecondsRemaining > 0 {
			s.SecondsRemaining--
		}
		return exhaust(plan, s, nil)

	case ActionSkip:
		if !s.Phase.Counting() {
			return s, nil
		}
		from := s.Phase
		next := advanceExercise(plan, s)
		next.Paused = s.Paused && next.Phase != PhaseCompleted
		changes := []Change{{From: from, To: next.Phase, ExerciseIndex: next.ExerciseIndex}}
		return exhaust(plan, next, changes)

	case ActionPause:
		if s.Phase.Counting() {
			s.Paused = true
		}
		return s, nil

	case ActionResume:
		if s.Phase.Counting() {
			s.Paused = false
		}
		return s, nil

	case ActionStop:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		return State{Phase: PhaseIdle}, []Change{{From: s.Phase, To: PhaseIdle}}
	}

	return s, nil
}

// exhaust applies phase exhaustion transitions for as long as the countdown sits at zero.
func exhaust(plan workout.Plan, s State, changes []Change) (State, []Change) {
	for s.Phase.Counting() && s.SecondsRemaining == 0 {
		from := s.Phase
		switch s.Phase {
		case PhaseWorking:
			s.Phase = PhaseResting
			s.SecondsRemaining = plan.Exercises[s.ExerciseIndex].RestSeconds
		case PhaseResting:
			s = advanceExercise(plan, s)
		}
		changes = append(changes, Change{From: from, To: s.Phase, ExerciseIndex: s.ExerciseIndex})
	}
	return s, changes
}

// advanceExercise moves to the Working phase of the next exercise, or to
// Completed when there is none.
func advanceExercise(plan workout.Plan, s State) State {
	nextIdx := s.ExerciseIndex + 1
	if nextIdx >= plan.Len() {
		return State{
			Phase:         PhaseCompleted,
			ExerciseIndex: s.ExerciseIndex,
		}
	}
	return State{
		Phase:            PhaseWorking,
		ExerciseIndex:    nextIdx,
		SecondsRemaining: plan.Exercises[nextIdx].WorkSeconds,
		Paused:           s.Paused,
	}
}
