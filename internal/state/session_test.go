package state

import "testing"

func TestNewSessionStateStartsIdleAndCreated(t *testing.T) {
	s := NewSessionState("run-1")
	if s.Status != SessionCreated {
		t.Fatalf("expected SessionCreated, got %v", s.Status)
	}
	if s.Runtime.Phase != PhaseIdle {
		t.Fatalf("expected PhaseIdle, got %v", s.Runtime.Phase)
	}
	if s.RunID != "run-1" {
		t.Fatalf("expected run-1, got %v", s.RunID)
	}
	if s.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
}

func TestSessionStateTransitionUpdatesStatusAndCompletion(t *testing.T) {
	s := NewSessionState("")
	if err := s.TransitionTo(PhaseInitializing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.TransitionTo(PhaseMemorySearch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.TransitionTo(PhaseRunnerStarting); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.TransitionTo(PhaseRunnerRunning); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != SessionRunning {
		t.Fatalf("expected SessionRunning, got %v", s.Status)
	}

	if err := s.TransitionTo(PhaseCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != SessionCompleted {
		t.Fatalf("expected SessionCompleted, got %v", s.Status)
	}
	if s.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
}

func TestSessionStateIncrementCounters(t *testing.T) {
	s := NewSessionState("")
	s.IncrementToolEvents(5)
	s.IncrementToolEvents(3)
	if s.Runtime.ToolEventsCount != 8 {
		t.Fatalf("expected 8, got %d", s.Runtime.ToolEventsCount)
	}
	s.IncrementMemoryHits(2)
	if s.Runtime.MemoryHits != 2 {
		t.Fatalf("expected 2, got %d", s.Runtime.MemoryHits)
	}
}

func TestSessionStateIsActiveAndIsDone(t *testing.T) {
	s := NewSessionState("")
	if s.IsActive() || s.IsDone() {
		t.Fatal("a freshly created session should be neither active nor done")
	}
	_ = s.TransitionTo(PhaseInitializing)
	_ = s.TransitionTo(PhaseMemorySearch)
	_ = s.TransitionTo(PhaseRunnerStarting)
	_ = s.TransitionTo(PhaseRunnerRunning)
	if !s.IsActive() {
		t.Fatal("expected session to be active while running")
	}
	_ = s.TransitionTo(PhaseFailed)
	if s.IsActive() {
		t.Fatal("expected session not active after failing")
	}
	if !s.IsDone() {
		t.Fatal("expected session done after failing")
	}
}
