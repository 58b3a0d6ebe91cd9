package interval

import "fmt"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWorking
	PhaseResting
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWorking:
		return "working"
	case PhaseResting:
		return "resting"
	case PhaseCompleted:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "working":
		*p = PhaseWorking
	case "resting":
		*p = PhaseResting
	case "completed":
		*p = PhaseCompleted
	default:
		return fmt.Errorf("unknown phase: %s", text)
	}
	return nil
}

// Counting reports whether the countdown runs in this phase.
func (p Phase) Counting() bool {
	return p == PhaseWorking || p == PhaseResting
}

// State is the live execution context of one workout run.
type State struct {
	Phase            Phase `json:"phase"`
	ExerciseIndex    int   `json:"exerciseIndex"`
	SecondsRemaining int   `json:"secondsRemaining"`
	Paused           bool  `json:"paused"`
}

// Ticking reports whether a tick would decrement the countdown.
func (s State) Ticking() bool {
	return s.Phase.Counting() && !s.Paused
}

func (s State) String() string {
	paused := ""
	if s.Paused {
		paused = " (paused)"
	}
	return fmt.Sprintf("%s #%d %ds%s", s.Phase, s.ExerciseIndex, s.SecondsRemaining, paused)
}
