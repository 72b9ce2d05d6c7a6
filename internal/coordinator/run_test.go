package coordinator

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/policy"
	"github.com/haasonsaas/memex-cli/internal/state"
	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

type fakePlugin struct {
	matches    []memory.SearchMatch
	searchErr  error
	hits       []memory.HitsPayload
	candidates []memory.CandidatePayload
	validates  []memory.ValidationPayload
}

func (f *fakePlugin) Name() string { return "fake" }

func (f *fakePlugin) Search(ctx context.Context, payload memory.SearchPayload) ([]memory.SearchMatch, error) {
	return f.matches, f.searchErr
}

func (f *fakePlugin) RecordHit(ctx context.Context, payload memory.HitsPayload) error {
	f.hits = append(f.hits, payload)
	return nil
}

func (f *fakePlugin) RecordCandidate(ctx context.Context, payload memory.CandidatePayload) error {
	f.candidates = append(f.candidates, payload)
	return nil
}

func (f *fakePlugin) RecordValidation(ctx context.Context, payload memory.ValidationPayload) error {
	f.validates = append(f.validates, payload)
	return nil
}

func (f *fakePlugin) TaskGrade(ctx context.Context, prompt string) (memory.TaskGradeResult, error) {
	return memory.TaskGradeResult{}, nil
}

func baseConfig(mem memory.Plugin) Config {
	return Config{
		ProjectID:         "proj1",
		Memory:            mem,
		Policy:            policy.NewConfigPolicy(policy.Config{DefaultAction: "allow"}),
		State:             state.NewStateManager("v1", 16),
		Logger:            slog.Default(),
		Gatekeeper:        gatekeeper.DefaultConfig(),
		Inject:            gatekeeper.DefaultInjectConfig(),
		MemorySearchLimit: 5,
		AbortGrace:        10 * time.Millisecond,
	}
}

func TestRunCompletesCleanExitAndInjectsMemory(t *testing.T) {
	mem := &fakePlugin{matches: []memory.SearchMatch{
		{QAID: "m1", Question: "how do I deploy?", Answer: "run the deploy script", Score: 0.9, Trust: 0.8, ValidationLevel: 2, Status: "active"},
	}}
	cfg := baseConfig(mem)

	result, err := Run(context.Background(), cfg, RunRequest{
		Cmd:       "/bin/echo",
		Args:      []string{"hello"},
		UserQuery: "how do I deploy this service?",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Phase != state.PhaseCompleted {
		t.Fatalf("expected PhaseCompleted, got %s", result.Phase)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	if len(result.InjectedItems) != 1 || result.InjectedItems[0].QAID != "m1" {
		t.Fatalf("expected m1 injected, got %+v", result.InjectedItems)
	}
	if result.FinalPrompt == cfg.ProjectID {
		t.Fatal("sanity: final prompt should not equal project id")
	}

	sess, ok := cfg.State.Session(result.SessionID)
	if !ok {
		t.Fatal("expected session to be tracked in state manager")
	}
	if sess.Status != state.SessionCompleted {
		t.Fatalf("expected session status completed, got %s", sess.Status)
	}
	if sess.Runtime.MemoryHits != 1 {
		t.Fatalf("expected 1 memory hit recorded, got %d", sess.Runtime.MemoryHits)
	}
}

func TestRunSurvivesMemorySearchFailure(t *testing.T) {
	mem := &fakePlugin{searchErr: context.DeadlineExceeded}
	cfg := baseConfig(mem)

	result, err := Run(context.Background(), cfg, RunRequest{
		Cmd:       "/bin/echo",
		Args:      []string{"hi"},
		UserQuery: "anything",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Phase != state.PhaseCompleted {
		t.Fatalf("expected completion despite memory search failure, got %s", result.Phase)
	}
	if len(result.InjectedItems) != 0 {
		t.Fatalf("expected no injected items, got %+v", result.InjectedItems)
	}
}

func TestRunAbortsOnPolicyDeny(t *testing.T) {
	mem := &fakePlugin{}
	cfg := baseConfig(mem)
	cfg.Policy = policy.NewConfigPolicy(policy.Config{DefaultAction: "deny"})
	cfg.FailClosed = true

	line := toolevent.Prefix + ` {"v":1,"type":"tool.request","run_id":"R1","id":"t1","tool":"shell","action":"run"}`
	result, err := Run(context.Background(), cfg, RunRequest{
		Cmd:       "/bin/echo",
		Args:      []string{line},
		UserQuery: "run something dangerous",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Aborted {
		t.Fatalf("expected run to be aborted, got %+v", result)
	}
	if result.Phase != state.PhaseCompleted {
		t.Fatalf("expected PhaseCompleted after abort, got %s", result.Phase)
	}
}

func TestRunPersistsGatekeeperWritesBestEffort(t *testing.T) {
	mem := &fakePlugin{}
	cfg := baseConfig(mem)
	cfg.Gatekeeper.MinAnswerChars = 0

	line := toolevent.Prefix + ` {"v":1,"type":"assistant.output","run_id":"R1","output":"short answer"}`
	_, err := Run(context.Background(), cfg, RunRequest{
		Cmd:       "/bin/echo",
		Args:      []string{line},
		UserQuery: "q",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Persistence is best-effort; the fakePlugin never errors, so a
	// candidate draft decision should have reached RecordCandidate if
	// the Gatekeeper decided to write one. We only assert Run didn't
	// fail because of it.
	_ = mem.candidates
}
