package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/memex-cli/internal/kernelerr"
	"github.com/haasonsaas/memex-cli/internal/ring"
)

// buildRunCmd drives one end-to-end wrapped-assistant session through
// internal/coordinator.Run: the Run Coordinator (§4.J) searches memory,
// starts the named backend as a subprocess, polices its tool calls
// live, and persists the Gatekeeper's verdict.
func buildRunCmd(deps *cliDeps) *cobra.Command {
	var (
		prompt       string
		promptFile   string
		useStdin     bool
		streamFormat string
		eventsFile   string
		runID        string
		quiet        bool
		verbose      bool
		asciiOnly    bool
		tui          bool
	)

	cmd := &cobra.Command{
		Use:   "run -- <backend> [backend-args...]",
		Short: "Run one wrapped-assistant session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := resolvePrompt(prompt, promptFile, useStdin, cmd.InOrStdin())
			if err != nil {
				return kernelerr.New(kernelerr.Command, "resolve prompt", err)
			}

			logger := deps.logger()
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, *deps.configPath, logger.Slog())
			if err != nil {
				return err
			}

			cfg := rt.coordinatorConfig()
			if streamFormat != "" && streamFormat != "text" && streamFormat != "jsonl" {
				return kernelerr.New(kernelerr.Command, fmt.Sprintf("invalid --stream-format %q", streamFormat), nil)
			}
			if eventsFile != "" {
				f, err := os.Create(eventsFile)
				if err != nil {
					return kernelerr.New(kernelerr.Io, "open events file", err)
				}
				defer f.Close()
				cfg.EventsSink = ring.NewEventsOutTx(f, 256)
				defer cfg.EventsSink.Close()
			}

			result, runErr := runCoordinator(ctx, cfg, args, query)

			out := cmd.OutOrStdout()
			if !quiet {
				printRunSummary(out, result, runErr, verbose || tui, asciiOnly)
			}

			_ = runID // accepted for forward-compat with caller-supplied correlation; the coordinator mints its own.
			if runErr != nil {
				return runErr
			}
			if code := exitCodeForRun(result, nil); code != 0 {
				return &cliExit{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "User query text")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "Read the user query from a file")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read the user query from stdin")
	cmd.Flags().StringVar(&streamFormat, "stream-format", "text", "Event stream format (text, jsonl)")
	cmd.Flags().StringVar(&eventsFile, "events-file", "", "Write normalized tool events as JSONL to this file")
	cmd.Flags().StringVar(&runID, "run-id", "", "Caller-supplied run id (informational; the coordinator mints its own)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress the run summary")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print memory-injection and decision detail")
	cmd.Flags().BoolVar(&asciiOnly, "ascii", false, "Use ASCII-only output glyphs")
	cmd.Flags().BoolVar(&tui, "tui", false, "Print the run summary with memory-injection and decision detail (same as --verbose)")

	return cmd
}

func resolvePrompt(prompt, promptFile string, useStdin bool, stdin io.Reader) (string, error) {
	switch {
	case useStdin:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	case promptFile != "":
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return prompt, nil
	}
}
