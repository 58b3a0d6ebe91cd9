package interval

type EventType string

const (
	EventTick              EventType = "tick"
	EventPhaseChange       EventType = "phase_change"
	EventCompleted         EventType = "completed"
	EventCompletionSaved   EventType = "completion_saved"
	EventCompletionWarning EventType = "completion_warning"
)

type Event struct {
	Type    EventType `json:"type"`
	State   State     `json:"state"`
	Change  *Change   `json:"change,omitempty"`
	Run     *Run      `json:"run,omitempty"`
	Message string    `json:"message,omitempty"`
}

const subscriberBuffer = 64

type subscriber struct {
	id     int
	events chan Event
}

// publish never blocks, a subscriber with a full buffer misses the event.
func (s *subscriber) publish(e Event) bool {
	select {
	case s.events <- e:
		return true
	default:
		return false
	}
}
