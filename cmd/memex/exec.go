package main

import (
	"context"
	"fmt"
	"io"

	"github.com/haasonsaas/memex-cli/internal/coordinator"
)

// cliExit carries a process exit code out of a cobra RunE without
// printing an error line: a nonzero child exit or a policy-triggered
// abort is a completed run, not a Go error, but main() still needs the
// code to pass to os.Exit.
type cliExit struct{ code int }

func (e *cliExit) Error() string { return fmt.Sprintf("exit %d", e.code) }

// runCoordinator splits args into the backend command and its own
// arguments (everything after `run --`) and drives one coordinator.Run.
func runCoordinator(ctx context.Context, cfg coordinator.Config, args []string, userQuery string) (coordinator.RunResult, error) {
	req := coordinator.RunRequest{
		Cmd:       args[0],
		UserQuery: userQuery,
	}
	if len(args) > 1 {
		req.Args = args[1:]
	}
	return coordinator.Run(ctx, cfg, req)
}

// printRunSummary writes a one-line (or, when verbose, multi-line)
// human-readable summary of a completed run. JSON/streaming event
// output goes through cfg.EventsSink instead; this is the CLI's final
// status line, matching the teacher's cmd output discipline of writing
// through cmd.OutOrStdout() rather than raw fmt.Println.
func printRunSummary(w io.Writer, result coordinator.RunResult, runErr error, verbose bool, asciiOnly bool) {
	if runErr != nil {
		fmt.Fprintf(w, "run failed: %v\n", runErr)
		return
	}

	mark := "✓"
	if asciiOnly {
		mark = "OK"
	}
	if result.Aborted {
		mark = "!"
	}

	fmt.Fprintf(w, "%s run=%s session=%s phase=%s exit=%d\n", mark, result.RunID, result.SessionID, result.Phase, result.ExitCode)
	if result.Aborted {
		fmt.Fprintf(w, "  aborted: %s\n", result.AbortReason)
	}
	if !verbose {
		return
	}

	if len(result.Decision.Reasons) > 0 {
		fmt.Fprintf(w, "  decision reasons: %v\n", result.Decision.Reasons)
	}
	fmt.Fprintf(w, "  write_candidate=%t hit_refs=%d\n", result.Decision.ShouldWriteCandidate, len(result.Decision.HitRefs))
	if len(result.InjectedItems) > 0 {
		fmt.Fprintf(w, "  injected %d memory item(s)\n", len(result.InjectedItems))
		for _, item := range result.InjectedItems {
			fmt.Fprintf(w, "    - %s\n", item.QAID)
		}
	}
}
