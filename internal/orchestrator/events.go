package orchestrator

// EventType classifies run events. A run emits zero or more progress events
// followed by exactly one terminal event (complete, error, or cancelled).
type EventType string

const (
	EventProgress  EventType = "progress"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
)

// Event is one update from an in-flight run.
type Event struct {
	Type     EventType `json:"eventType"`
	Step     string    `json:"step,omitempty"`
	Progress float64   `json:"progress,omitempty"` // 0..1
	Err      string    `json:"error,omitempty"`
}

// Terminal reports whether the event ends the run.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError || e.Type == EventCancelled
}
