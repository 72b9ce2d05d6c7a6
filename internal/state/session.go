package state

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the coarse status derived from a session's RuntimePhase.
type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

func statusForPhase(phase RuntimePhase) SessionStatus {
	switch phase {
	case PhaseIdle, PhaseInitializing:
		return SessionCreated
	case PhaseCompleted:
		return SessionCompleted
	case PhaseFailed:
		return SessionFailed
	default:
		return SessionRunning
	}
}

// SessionState tracks one run's lifecycle: its RuntimeState, timestamps,
// and free-form metadata the coordinator attaches along the way.
type SessionState struct {
	SessionID   string            `json:"session_id"`
	RunID       string            `json:"run_id,omitempty"`
	Status      SessionStatus     `json:"status"`
	Runtime     RuntimeState      `json:"runtime"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewSessionState creates a fresh session, optionally pre-bound to a known
// run ID (e.g. when resuming a replayed run).
func NewSessionState(runID string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		SessionID: uuid.NewString(),
		RunID:     runID,
		Status:    SessionCreated,
		Runtime:   NewRuntimeState(runID),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]string),
	}
}

// TransitionTo validates and applies a phase change, updating status and
// completion time as a side effect. Callers that don't need validation
// (e.g. restoring from a snapshot) should set Runtime.Phase directly.
func (s *SessionState) TransitionTo(phase RuntimePhase) error {
	if err := ValidateTransition(s.Runtime.Phase, phase); err != nil {
		return err
	}
	s.Runtime.Phase = phase
	s.Status = statusForPhase(phase)
	s.UpdatedAt = time.Now().UTC()
	if s.Status == SessionCompleted || s.Status == SessionFailed {
		now := s.UpdatedAt
		s.CompletedAt = &now
	}
	return nil
}

// IncrementToolEvents bumps the processed tool-event count.
func (s *SessionState) IncrementToolEvents(n int) {
	s.Runtime.ToolEventsCount += n
	s.UpdatedAt = time.Now().UTC()
}

// IncrementMemoryHits bumps the memory-retrieval hit count.
func (s *SessionState) IncrementMemoryHits(n int) {
	s.Runtime.MemoryHits += n
	s.UpdatedAt = time.Now().UTC()
}

// SetRunnerPID records the spawned runner process's PID.
func (s *SessionState) SetRunnerPID(pid int) {
	s.Runtime.RunnerPID = pid
	s.UpdatedAt = time.Now().UTC()
}

// SetGatekeeperDecision attaches the gatekeeper's decision snapshot.
func (s *SessionState) SetGatekeeperDecision(d GatekeeperDecisionSnapshot) {
	s.Runtime.GatekeeperDecision = &d
	s.UpdatedAt = time.Now().UTC()
}

// SetMetadata stores a free-form key/value pair against the session.
func (s *SessionState) SetMetadata(key, value string) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
	s.UpdatedAt = time.Now().UTC()
}

// DurationMS returns the session's elapsed time, up to CompletedAt if set
// or up to now otherwise.
func (s *SessionState) DurationMS() int64 {
	end := time.Now().UTC()
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	return end.Sub(s.CreatedAt).Milliseconds()
}

// IsActive reports whether the session is currently running.
func (s *SessionState) IsActive() bool {
	return s.Status == SessionRunning
}

// IsDone reports whether the session has reached a terminal status.
func (s *SessionState) IsDone() bool {
	switch s.Status {
	case SessionCompleted, SessionFailed, SessionCancelled:
		return true
	default:
		return false
	}
}
