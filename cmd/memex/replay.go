package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
	"github.com/haasonsaas/memex-cli/internal/kernelerr"
	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/replay"
	"github.com/haasonsaas/memex-cli/internal/supervisor"
)

// buildReplayCmd reconstructs a past session from its recorded JSONL
// event stream and, when --override is given, reruns the Gatekeeper
// against the overridden thresholds to report what would have changed.
func buildReplayCmd(deps *cliDeps) *cobra.Command {
	var (
		eventsFile string
		runIDFlag  string
		overrides  []string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reconstruct and report on a recorded session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventsFile == "" {
				return kernelerr.New(kernelerr.Command, "--events-file is required", nil)
			}
			f, err := os.Open(eventsFile)
			if err != nil {
				return kernelerr.New(kernelerr.Io, "open events file", err)
			}
			defer f.Close()

			runs, err := replay.ParseEvents(f, runIDFlag)
			if err != nil {
				return kernelerr.New(kernelerr.Replay, "parse events", err)
			}

			if len(overrides) > 0 {
				rt, err := buildRuntime(cmd.Context(), *deps.configPath, deps.logger().Slog())
				if err != nil {
					return err
				}
				baseCfg := rt.coordinatorConfig().Gatekeeper
				rerunCfg, err := replay.ApplyOverrides(baseCfg, overrides)
				if err != nil {
					return kernelerr.New(kernelerr.Replay, "apply overrides", err)
				}
				for i := range runs {
					applyRerun(&runs[i], rerunCfg)
				}
			}

			report := replay.BuildReport(runs)
			cmd.OutOrStdout().Write([]byte(replay.FormatText(report)))
			return nil
		},
	}

	cmd.Flags().StringVar(&eventsFile, "events-file", "", "Path to the recorded JSONL event stream")
	cmd.Flags().StringVar(&runIDFlag, "run-id", "", "Restrict the replay to a single run id")
	cmd.Flags().StringArrayVar(&overrides, "override", nil, "Gatekeeper config override as key=value (repeatable)")

	return cmd
}

// applyRerun recomputes the Gatekeeper decision for one run under cfg
// and records the diff against the originally recorded decision into
// run.Derived["rerun_gatekeeper"], the key FormatText looks for.
func applyRerun(run *replay.RunRecord, cfg gatekeeper.Config) {
	if run.Derived == nil {
		run.Derived = map[string]any{}
	}

	matches, ok := searchMatchesFromWrapper(run.SearchResult)
	if !ok {
		run.Derived["rerun_gatekeeper"] = map[string]any{
			"skipped":     true,
			"skip_reason": "no memory.search.result snapshot recorded for this run",
		}
		return
	}

	outcome := supervisor.RunOutcome{
		RunID:      run.RunID,
		ToolEvents: run.ToolEvents,
	}
	if run.RunnerExit != nil {
		if code, ok := wrapperInt(run.RunnerExit, "exit_code"); ok {
			outcome.ExitCode = code
		}
	}

	decision := gatekeeper.Evaluate(time.Now(), cfg, matches, outcome, run.ToolEvents)
	rerunMap, baselineMap := toMap(decision), baselineDecisionMap(run.GatekeeperDecision)
	diff := replay.DiffGatekeeperDecision(baselineMap, rerunMap)

	run.Derived["rerun_gatekeeper"] = map[string]any{
		"skipped": false,
		"diff": map[string]any{
			"has_baseline":  diff.HasBaseline,
			"changed":       diff.Changed,
			"summary_lines": diff.SummaryLines,
		},
	}
}

func searchMatchesFromWrapper(w *replay.WrapperEvent) ([]memory.SearchMatch, bool) {
	if w == nil {
		return nil, false
	}
	raw, ok := w.Field("matches")
	if !ok {
		return nil, false
	}
	var matches []memory.SearchMatch
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, false
	}
	return matches, true
}

func baselineDecisionMap(w *replay.WrapperEvent) map[string]any {
	if w == nil {
		return nil
	}
	raw, ok := w.Field("decision")
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func wrapperInt(w *replay.WrapperEvent, key string) (int, bool) {
	raw, ok := w.Field(key)
	if !ok {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
