package state

import (
	"fmt"
	"sync"
	"time"
)

// StateManager holds process-wide AppState and every known SessionState
// behind a single mutex. The pack's own session store shards its locks by
// session ID to cut contention under concurrent writers (see
// sessions.SessionLocker); a supervisor run count stays low enough -
// normally one, rarely a handful of concurrent runs - that sharding would
// add complexity with no measurable benefit here, so this keeps a single
// lock and leaves sharding as unused headroom.
type StateManager struct {
	mu       sync.RWMutex
	app      AppState
	sessions map[string]*SessionState
	updates  chan StateEvent
	closed   bool
}

// NewStateManager creates a manager with a fresh AppState and an update
// stream buffered to bufferSize (at least 1).
func NewStateManager(configVersion string, bufferSize int) *StateManager {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &StateManager{
		app:      NewAppState(configVersion),
		sessions: make(map[string]*SessionState),
		updates:  make(chan StateEvent, bufferSize),
	}
}

// Handle returns a read-only view of a StateManager for components that
// should observe state without mutating it (e.g. the HTTP server's status
// endpoint).
type StateManagerHandle struct {
	m *StateManager
}

// Handle returns a StateManagerHandle wrapping m.
func (m *StateManager) Handle() StateManagerHandle {
	return StateManagerHandle{m: m}
}

// AppState returns a copy of the current process-wide state.
func (h StateManagerHandle) AppState() AppState {
	return h.m.AppState()
}

// Session returns a copy of the named session's state, if known.
func (h StateManagerHandle) Session(sessionID string) (SessionState, bool) {
	return h.m.Session(sessionID)
}

// Sessions returns copies of every known session's state.
func (h StateManagerHandle) Sessions() []SessionState {
	return h.m.Sessions()
}

// AppState returns a copy of the current process-wide state.
func (m *StateManager) AppState() AppState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.app
}

// CreateSession registers a new session, optionally bound to a known run
// ID, and returns its session ID.
func (m *StateManager) CreateSession(runID string) string {
	session := NewSessionState(runID)

	m.mu.Lock()
	m.app.ActiveSessions++
	m.sessions[session.SessionID] = session
	m.mu.Unlock()

	m.publish(StateEvent{Kind: EventSessionCreated, SessionID: session.SessionID, OccurredAt: time.Now().UTC()})
	return session.SessionID
}

// Session returns a copy of the named session's state.
func (m *StateManager) Session(sessionID string) (SessionState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return SessionState{}, false
	}
	return *s, true
}

// Sessions returns copies of every known session's state.
func (m *StateManager) Sessions() []SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SessionState, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out
}

// TransitionSession moves a session to a new phase and publishes a
// StateEvent describing the move. It fails if sessionID is unknown or the
// transition is illegal.
func (m *StateManager) TransitionSession(sessionID string, phase RuntimePhase) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("state: unknown session %q", sessionID)
	}
	oldPhase := s.Runtime.Phase
	if err := s.TransitionTo(phase); err != nil {
		m.mu.Unlock()
		return err
	}
	if s.Status == SessionCompleted {
		m.app.ActiveSessions--
		m.app.CompletedSessions++
	} else if s.Status == SessionFailed {
		m.app.ActiveSessions--
	}
	m.mu.Unlock()

	m.publish(StateEvent{
		Kind:       EventSessionPhaseChanged,
		SessionID:  sessionID,
		OldPhase:   oldPhase,
		NewPhase:   phase,
		OccurredAt: time.Now().UTC(),
	})
	if phase == PhaseCompleted {
		m.publish(StateEvent{Kind: EventSessionCompleted, SessionID: sessionID, OccurredAt: time.Now().UTC()})
	}
	return nil
}

// RecordToolEvents increments a session's tool-event counter and publishes
// a StateEvent.
func (m *StateManager) RecordToolEvents(sessionID string, count int) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("state: unknown session %q", sessionID)
	}
	s.IncrementToolEvents(count)
	m.mu.Unlock()

	m.publish(StateEvent{Kind: EventToolEventsReceived, SessionID: sessionID, EventCount: count, OccurredAt: time.Now().UTC()})
	return nil
}

// RecordMemoryHits increments a session's memory-hit counter and publishes
// a StateEvent.
func (m *StateManager) RecordMemoryHits(sessionID string, count int) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("state: unknown session %q", sessionID)
	}
	s.IncrementMemoryHits(count)
	m.mu.Unlock()

	m.publish(StateEvent{Kind: EventMemoryHit, SessionID: sessionID, HitCount: count, OccurredAt: time.Now().UTC()})
	return nil
}

// RecordGatekeeperDecision attaches a decision snapshot to a session and
// publishes a StateEvent.
func (m *StateManager) RecordGatekeeperDecision(sessionID string, d GatekeeperDecisionSnapshot) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("state: unknown session %q", sessionID)
	}
	s.SetGatekeeperDecision(d)
	m.mu.Unlock()

	m.publish(StateEvent{
		Kind:        EventGatekeeperDecision,
		SessionID:   sessionID,
		ShouldWrite: d.ShouldWriteCandidate,
		OccurredAt:  time.Now().UTC(),
	})
	return nil
}

// FailSession marks a session Failed and publishes a StateEvent carrying
// the failure reason.
func (m *StateManager) FailSession(sessionID string, cause error) error {
	if err := m.TransitionSession(sessionID, PhaseFailed); err != nil {
		return err
	}
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	m.publish(StateEvent{Kind: EventSessionFailed, SessionID: sessionID, Error: reason, OccurredAt: time.Now().UTC()})
	return nil
}

// Snapshot captures the current AppState and every SessionState for
// persistence by a SnapshotManager.
func (m *StateManager) Snapshot() (AppState, map[string]SessionState) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make(map[string]SessionState, len(m.sessions))
	for id, s := range m.sessions {
		sessions[id] = *s
	}
	return m.app, sessions
}

// Restore replaces the manager's AppState and sessions with a loaded
// snapshot's contents, e.g. after a process restart.
func (m *StateManager) Restore(app AppState, sessions map[string]SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.app = app
	m.sessions = make(map[string]*SessionState, len(sessions))
	for id, s := range sessions {
		sessionCopy := s
		m.sessions[id] = &sessionCopy
	}
}

// Subscribe returns the manager's update stream. There is a single shared
// channel, not one per subscriber: callers that need independent fan-out
// should read from it and re-publish to their own listeners.
func (m *StateManager) Subscribe() <-chan StateEvent {
	return m.updates
}

// Close stops publishing and closes the update stream. Safe to call more
// than once.
func (m *StateManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.updates)
}

func (m *StateManager) publish(event StateEvent) {
	m.mu.RLock()
	closed := m.closed
	updates := m.updates
	m.mu.RUnlock()
	if closed {
		return
	}
	select {
	case updates <- event:
	default:
		// Best-effort: a slow or absent subscriber must never block a run.
	}
}
