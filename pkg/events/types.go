package events

import "time"

// Type identifies the kind of lifecycle event emitted during a run.
type Type string

const (
	TypeRunStarted     Type = "run.started"
	TypeRunCompleted   Type = "run.completed"
	TypeProbeStarted   Type = "probe.started"
	TypeProbeCompleted Type = "probe.completed"
	TypeProbeSkipped   Type = "probe.skipped"
	TypeProbeRetried   Type = "probe.retried"
	TypeGroupStarted   Type = "group.started"
	TypeGroupCompleted Type = "group.completed"
)

// Event is a single lifecycle event. RunName and ProbeName are set when
// they apply to the event's scope; Err carries a transport or build
// failure, never validation errors.
type Event struct {
	Type      Type          `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	RunName   string        `json:"run_name,omitempty"`
	ProbeName string        `json:"probe_name,omitempty"`
	GroupName string        `json:"group_name,omitempty"`
	Success   bool          `json:"success,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Attempt   int           `json:"attempt,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Err       error         `json:"-"`
}

// New creates an Event of the given type stamped with the current time.
func New(typ Type) Event {
	return Event{Type: typ, Timestamp: time.Now()}
}
