package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/policy"
	"github.com/haasonsaas/memex-cli/internal/state"
	"github.com/haasonsaas/memex-cli/internal/supervisor"
	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

// Run drives one end-to-end wrapped-assistant session: session
// creation, memory search and prompt injection, subprocess start,
// live tool-event policing, outcome collection, Gatekeeper evaluation,
// and best-effort memory persistence. It returns once the subprocess
// has exited and every write the Gatekeeper named has been attempted.
func Run(ctx context.Context, cfg Config, req RunRequest) (RunResult, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runID := uuid.NewString()
	sessionID := ""
	if cfg.State != nil {
		sessionID = cfg.State.CreateSession(runID)
	}
	reporter := newStateReporter(cfg.State, sessionID, logger)
	result := RunResult{SessionID: sessionID, RunID: runID, Phase: state.PhaseInitializing}

	// Step 2: memory search, inject selection, prompt assembly.
	reporter.transition(state.PhaseMemorySearch)
	matches, err := searchMemory(ctx, cfg, req.UserQuery)
	if err != nil {
		logger.Warn("memory search failed, continuing without context", "run_id", runID, "error", err)
	}
	now := time.Now()
	injected := gatekeeper.SelectInjectItems(now, cfg.Gatekeeper, matches)
	memoryContext := gatekeeper.RenderMemoryContext(injected, cfg.Inject)
	finalPrompt := gatekeeper.MergePrompt(req.UserQuery, memoryContext)
	shownIDs := make([]string, len(injected))
	for i, item := range injected {
		shownIDs[i] = item.QAID
	}
	reporter.onMemoryHits(len(injected))
	result.FinalPrompt = finalPrompt
	result.InjectedItems = injected

	// Step 3: start the subprocess with a fresh per-run policy engine
	// wired to forward live tool.request decisions and abort on deny.
	reporter.transition(state.PhaseRunnerStarting)
	runPolicy := cfg.Policy
	if runPolicy == nil {
		runPolicy = policy.NewConfigPolicy(policy.Config{DefaultAction: "allow"})
	}
	engine := policy.NewEngine(runPolicy, cfg.DecisionTimeout, cfg.FailClosed)

	var abortOnce sync.Once
	var abortMu sync.Mutex
	var aborted bool
	var abortReason string

	triggerAbort := func(sess *supervisor.Session, reason string) {
		abortOnce.Do(func() {
			abortMu.Lock()
			aborted = true
			abortReason = reason
			abortMu.Unlock()
			logger.Warn("aborting run", "run_id", runID, "reason", reason)
			go supervisor.AbortSequence(sess, reason, cfg.AbortGrace)
		})
	}

	onToolEvent := func(sess *supervisor.Session, ev toolevent.Event) {
		reporter.onToolEvent()
		if ev.Kind != toolevent.KindToolRequest {
			return
		}
		cmd, action := engine.OnToolRequest(ev, time.Now())
		if cmd != nil {
			_ = sess.SendControl(cmd)
		}
		if action == policy.ActionAbort {
			reason := "tool.request missing id"
			if cmd != nil {
				reason = cmd.Reason
			}
			triggerAbort(sess, reason)
		}
	}

	startArgs := supervisor.StartArgs{
		Cmd:         req.Cmd,
		Args:        req.Args,
		Env:         req.Env,
		Dir:         req.Dir,
		RunID:       runID,
		OnToolEvent: onToolEvent,
	}

	sess, err := supervisor.Start(ctx, startArgs, cfg.EventsSink, logger)
	if err != nil {
		reporter.fail(err)
		result.Phase = state.PhaseFailed
		return result, fmt.Errorf("coordinator: start session: %w", err)
	}

	// Step 4: the subprocess is running; tool events are policed live
	// via onToolEvent as they arrive on the stdout pump goroutine.
	reporter.transition(state.PhaseRunnerRunning)

	// Step 6: block for the child's exit and collect its outcome.
	outcome, err := sess.Wait()
	abortMu.Lock()
	outcome.Aborted = aborted
	outcome.AbortReason = abortReason
	abortMu.Unlock()
	outcome.ShownQAIDs = shownIDs

	if err != nil {
		reporter.fail(err)
		result.Phase = state.PhaseFailed
		result.ExitCode = outcome.ExitCode
		return result, fmt.Errorf("coordinator: wait session: %w", err)
	}

	// Step 7: Gatekeeper evaluation.
	reporter.transition(state.PhaseGatekeeperEvaluating)
	decision := gatekeeper.Evaluate(time.Now(), cfg.Gatekeeper, matches, outcome, outcome.ToolEvents)
	result.Decision = decision
	if cfg.State != nil {
		if err := cfg.State.RecordGatekeeperDecision(sessionID, state.SnapshotFromDecision(decision)); err != nil {
			logger.Warn("state: record gatekeeper decision failed", "session_id", sessionID, "error", err)
		}
	}

	// Step 8: memory persistence. Every write is attempted regardless
	// of whether an earlier one failed; failures are logged, never
	// fatal to the run.
	reporter.transition(state.PhaseMemoryPersisting)
	persistDecision(ctx, cfg, logger, runID, decision)

	// Step 9: terminal transition. A nonzero child exit or a policy
	// abort is reported through ExitCode/Aborted; the session itself
	// still ends Completed.
	result.ExitCode = outcome.ExitCode
	result.Aborted = outcome.Aborted
	result.AbortReason = outcome.AbortReason
	reporter.transition(state.PhaseCompleted)
	result.Phase = state.PhaseCompleted

	return result, nil
}

func searchMemory(ctx context.Context, cfg Config, query string) ([]memory.SearchMatch, error) {
	if cfg.Memory == nil {
		return nil, nil
	}
	limit := cfg.MemorySearchLimit
	if limit <= 0 {
		limit = 10
	}
	return cfg.Memory.Search(ctx, memory.SearchPayload{
		ProjectID: cfg.ProjectID,
		Query:     query,
		Limit:     limit,
		MinScore:  cfg.MemoryMinScore,
	})
}

// persistDecision issues every write a Decision names, in hit/validate/
// candidate order, logging but not aborting on individual failures.
func persistDecision(ctx context.Context, cfg Config, logger *slog.Logger, runID string, decision gatekeeper.Decision) {
	if cfg.Memory == nil {
		return
	}

	if len(decision.HitRefs) > 0 {
		refs := make([]memory.ReferencePayload, len(decision.HitRefs))
		for i, h := range decision.HitRefs {
			shown, used := h.Shown, h.Used
			refs[i] = memory.ReferencePayload{
				QAID:    h.QAID,
				Shown:   &shown,
				Used:    &used,
				Context: h.Context,
			}
		}
		if err := cfg.Memory.RecordHit(ctx, memory.HitsPayload{ProjectID: cfg.ProjectID, References: refs}); err != nil {
			logger.Warn("memory: record hits failed", "run_id", runID, "error", err)
		}
	}

	for _, plan := range decision.ValidatePlans {
		success := plan.Result == "pass"
		payload := memory.ValidationPayload{
			ProjectID:      cfg.ProjectID,
			QAID:           plan.QAID,
			Result:         plan.Result,
			SignalStrength: plan.SignalStrength,
			Success:        &success,
			Source:         "coordinator",
		}
		if err := cfg.Memory.RecordValidation(ctx, payload); err != nil {
			logger.Warn("memory: record validation failed", "run_id", runID, "qa_id", plan.QAID, "error", err)
		}
	}

	if decision.ShouldWriteCandidate {
		for _, draft := range decision.CandidateDrafts {
			payload := memory.CandidatePayload{
				ProjectID:  cfg.ProjectID,
				Question:   draft.Question,
				Answer:     draft.Answer,
				Tags:       draft.Tags,
				Confidence: draft.Confidence,
				Metadata:   draft.Metadata,
				Summary:    draft.Summary,
				Source:     draft.Source,
			}
			if err := cfg.Memory.RecordCandidate(ctx, payload); err != nil {
				logger.Warn("memory: record candidate failed", "run_id", runID, "error", err)
			}
		}
	}
}
