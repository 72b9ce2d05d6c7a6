package state

import (
	"testing"
	"time"
)

func TestStateManagerCreateSessionTracksActiveCount(t *testing.T) {
	m := NewStateManager("1.0.0", 8)
	id := m.CreateSession("run-1")

	app := m.AppState()
	if app.ActiveSessions != 1 {
		t.Fatalf("expected 1 active session, got %d", app.ActiveSessions)
	}

	session, ok := m.Session(id)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if session.RunID != "run-1" {
		t.Fatalf("expected run-1, got %v", session.RunID)
	}
}

func TestStateManagerTransitionSessionUpdatesActiveAndCompletedCounts(t *testing.T) {
	m := NewStateManager("1.0.0", 8)
	id := m.CreateSession("run-1")

	for _, phase := range []RuntimePhase{
		PhaseInitializing, PhaseMemorySearch, PhaseRunnerStarting,
		PhaseRunnerRunning, PhaseProcessingToolEvents, PhaseGatekeeperEvaluating,
		PhaseMemoryPersisting, PhaseCompleted,
	} {
		if err := m.TransitionSession(id, phase); err != nil {
			t.Fatalf("unexpected error transitioning to %v: %v", phase, err)
		}
	}

	app := m.AppState()
	if app.ActiveSessions != 0 {
		t.Fatalf("expected 0 active sessions, got %d", app.ActiveSessions)
	}
	if app.CompletedSessions != 1 {
		t.Fatalf("expected 1 completed session, got %d", app.CompletedSessions)
	}
}

func TestStateManagerTransitionUnknownSessionErrors(t *testing.T) {
	m := NewStateManager("1.0.0", 8)
	if err := m.TransitionSession("missing", PhaseInitializing); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestStateManagerPublishesEventsOnSubscribedChannel(t *testing.T) {
	m := NewStateManager("1.0.0", 8)
	updates := m.Subscribe()

	id := m.CreateSession("run-1")

	select {
	case ev := <-updates:
		if ev.Kind != EventSessionCreated || ev.SessionID != id {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session created event")
	}
}

func TestStateManagerSnapshotAndRestoreRoundTrip(t *testing.T) {
	m := NewStateManager("1.0.0", 8)
	id := m.CreateSession("run-1")
	_ = m.RecordToolEvents(id, 4)

	app, sessions := m.Snapshot()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session in snapshot, got %d", len(sessions))
	}

	m2 := NewStateManager("1.0.0", 8)
	m2.Restore(app, sessions)

	restored, ok := m2.Session(id)
	if !ok {
		t.Fatal("expected restored session to be found")
	}
	if restored.Runtime.ToolEventsCount != 4 {
		t.Fatalf("expected 4 tool events, got %d", restored.Runtime.ToolEventsCount)
	}
}

func TestStateManagerCloseIsIdempotentAndStopsPublishing(t *testing.T) {
	m := NewStateManager("1.0.0", 8)
	m.Close()
	m.Close() // must not panic

	// publishing after close must not block or panic.
	m.CreateSession("run-1")
}
