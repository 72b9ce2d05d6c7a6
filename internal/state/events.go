package state

import "time"

// EventKind names the StateEvent cases.
type EventKind string

const (
	EventAppStarted          EventKind = "app_started"
	EventSessionCreated      EventKind = "session_created"
	EventSessionPhaseChanged EventKind = "session_phase_changed"
	EventToolEventsReceived  EventKind = "tool_events_received"
	EventMemoryHit           EventKind = "memory_hit"
	EventGatekeeperDecision  EventKind = "gatekeeper_decision"
	EventSessionCompleted    EventKind = "session_completed"
	EventSessionFailed       EventKind = "session_failed"
	EventAppShutdown         EventKind = "app_shutdown"
)

// StateEvent is a point-in-time notification of a state change, published
// on StateManager's update stream for observers (loggers, the HTTP server's
// SSE endpoint, metrics) to consume without polling.
type StateEvent struct {
	Kind        EventKind    `json:"kind"`
	SessionID   string       `json:"session_id,omitempty"`
	OldPhase    RuntimePhase `json:"old_phase,omitempty"`
	NewPhase    RuntimePhase `json:"new_phase,omitempty"`
	EventCount  int          `json:"event_count,omitempty"`
	HitCount    int          `json:"hit_count,omitempty"`
	ShouldWrite bool         `json:"should_write,omitempty"`
	ExitCode    int          `json:"exit_code,omitempty"`
	DurationMS  int64        `json:"duration_ms,omitempty"`
	Error       string       `json:"error,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}
