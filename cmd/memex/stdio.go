package main

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/memex-cli/internal/coordinator"
	"github.com/haasonsaas/memex-cli/internal/executor"
	"github.com/haasonsaas/memex-cli/internal/kernelerr"
	"github.com/haasonsaas/memex-cli/internal/stdioproto"
)

// buildStdioCmd reads a STDIO task block stream from stdin, builds a
// dependency-ordered task graph, and drives one coordinator.Run per
// task through the Executor (G), reusing the same supervisor/policy/
// memory/gatekeeper pipeline (C/D/E/F) that `run` drives for a single
// query.
func buildStdioCmd(deps *cliDeps) *cobra.Command {
	var (
		streamFormat string
		asciiOnly    bool
		runID        string
	)

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Run a STDIO task block stream through the executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return kernelerr.New(kernelerr.Io, "read stdin", err)
			}

			tasks, err := stdioproto.ParseTasks(string(input))
			if err != nil {
				return err // already a *kernelerr.Error from the parser
			}
			if len(tasks) == 0 {
				return kernelerr.NewStdioError(kernelerr.NoTasks, "no tasks in input")
			}

			graph, err := executor.NewTaskGraph(tasks)
			if err != nil {
				return kernelerr.New(kernelerr.Executor, "build task graph", err)
			}

			logger := deps.logger()
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, *deps.configPath, logger.Slog())
			if err != nil {
				return err
			}
			baseCfg := rt.coordinatorConfig()

			var renderer executor.Renderer
			out := cmd.OutOrStdout()
			if streamFormat == "jsonl" {
				renderer = executor.NewJSONLRenderer(out, false)
			} else {
				renderer = executor.NewTextRenderer(out, asciiOnly)
			}

			runner := stdioTaskRunner(baseCfg)
			engine := executor.NewEngine(graph, runner, executor.EngineConfig{
				Renderer: renderer,
				Logger:   logger.Slog(),
			})

			if runID == "" {
				runID = uuid.NewString()
			}
			result := engine.Run(ctx, runID)

			if result.Failed > 0 {
				return &cliExit{code: kernelerr.PolicyDenyExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&streamFormat, "stream-format", "text", "Event stream format (text, jsonl)")
	cmd.Flags().BoolVar(&asciiOnly, "ascii", false, "Use ASCII-only output glyphs")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id for the whole task-graph execution (auto-generated if empty)")

	return cmd
}

// stdioTaskRunner closes over a base coordinator.Config and drives one
// coordinator.Run per task, treating the task's content as the user
// query and its metadata.backend as the wrapped assistant command.
func stdioTaskRunner(baseCfg coordinator.Config) executor.TaskRunner {
	return func(ctx context.Context, task executor.ExecutableTask, enhancedContent string) (int, string, error) {
		if task.Metadata.Backend == "" {
			return 0, "", kernelerr.NewStdioError(kernelerr.MissingField, "task %s has no metadata.backend", task.ID)
		}

		result, err := coordinator.Run(ctx, baseCfg, coordinator.RunRequest{
			Cmd:       task.Metadata.Backend,
			Dir:       task.Metadata.Workdir,
			UserQuery: enhancedContent,
		})
		if err != nil {
			return 0, "", err
		}
		return result.ExitCode, result.FinalPrompt, nil
	}
}
