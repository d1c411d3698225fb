package reactmodel

import "time"

// EventType identifies the kind of lifecycle event a run emits while it
// streams.
type EventType string

const (
	EventStart       EventType = "start"
	EventThought     EventType = "thought"
	EventAction      EventType = "action"
	EventObservation EventType = "observation"
	EventFinalAnswer EventType = "final_answer"
	EventEnd         EventType = "end"
	EventError       EventType = "error"
)

// Event is one item in a session's ordered event stream. Every step the
// engine takes, plus the run's start/end/error markers, is emitted as an
// Event so subscribers can follow a run live or replay it after the fact.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Sequence  uint64         `json:"sequence"`
	Content   string         `json:"content,omitempty"`
	Success   bool           `json:"success,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SessionStatus tracks a run's lifecycle within the session manager.
type SessionStatus string

const (
	StatusCreated   SessionStatus = "created"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// Session is the persisted record of one ReAct run: its identity, the
// query that started it, the full event history, and its outcome.
type Session struct {
	ID          string        `json:"session_id"`
	Query       string        `json:"query"`
	Model       string        `json:"model"`
	Status      SessionStatus `json:"status"`
	Events      []Event       `json:"events"`
	FinalAnswer string        `json:"final_answer,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
}

// RunStats accumulates counters describing a run, folded over its event
// stream by the runner or by callers inspecting a persisted Session.
type RunStats struct {
	Thoughts     int
	Actions      int
	Observations int
	Errors       int
	WallTime     time.Duration
}

// Fold accumulates a single event's contribution into the stats.
func (r *RunStats) Fold(e Event) {
	switch e.Type {
	case EventThought:
		r.Thoughts++
	case EventAction:
		r.Actions++
	case EventObservation:
		r.Observations++
	case EventError:
		r.Errors++
	}
}
