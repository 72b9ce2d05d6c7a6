package supervisor

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

func TestStartRejectsUnsafeCommand(t *testing.T) {
	_, err := Start(context.Background(), StartArgs{Cmd: "rm; rm -rf /"}, nil, nil)
	if err == nil {
		t.Fatal("expected error for shell-metacharacter command")
	}
}

func TestSessionRunsEchoAndCapturesToolEvent(t *testing.T) {
	line := toolevent.Prefix + ` {"v":1,"type":"tool.result","run_id":"R1","id":"x","tool":"shell","ok":true}`
	s, err := Start(context.Background(), StartArgs{
		Cmd:   "/bin/echo",
		Args:  []string{line},
		RunID: "R1",
	}, nil, slog.Default())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	outcome, err := s.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", outcome.ExitCode)
	}
	if !strings.Contains(outcome.StdoutTail, "tool.result") {
		t.Fatalf("expected stdout tail to contain emitted line, got %q", outcome.StdoutTail)
	}
	if len(outcome.ToolEvents) != 1 {
		t.Fatalf("expected 1 tool event, got %d: %+v", len(outcome.ToolEvents), outcome.ToolEvents)
	}
	if outcome.ToolEvents[0].RunID != "R1" {
		t.Fatalf("expected run_id R1, got %q", outcome.ToolEvents[0].RunID)
	}
}

func TestAbortSequenceKillsSession(t *testing.T) {
	s, err := Start(context.Background(), StartArgs{
		Cmd:   "/bin/sleep",
		Args:  []string{"30"},
		RunID: "R2",
	}, nil, slog.Default())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan RunOutcome, 1)
	go func() {
		outcome, _ := s.Wait()
		done <- outcome
	}()

	AbortSequence(s, "forbidden tool invoked", 10*time.Millisecond)

	select {
	case outcome := <-done:
		if outcome.ExitCode == 0 {
			t.Fatalf("expected non-zero exit code after kill, got %d", outcome.ExitCode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not exit after abort sequence")
	}
}
