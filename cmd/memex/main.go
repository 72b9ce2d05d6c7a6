// Package main provides the CLI entry point for the memex kernel: a
// memory-augmented supervisor that wraps an assistant subprocess,
// polices its tool calls against a configured policy, evaluates its
// outcome with the Gatekeeper, and persists what it learned to a QA
// memory store.
//
// # Basic usage
//
//	memex run --prompt "what changed in the last deploy?" -- my-assistant
//	memex stdio < tasks.txt
//	memex replay --events-file run.jsonl
//	memex resume --snapshot-dir ~/.memex/snapshots
//	memex http-server --addr 127.0.0.1:8742
//
// # Environment variables
//
//   - MEM_CODECLI_BACKEND_KIND: overrides memory.backend_kind
//   - MEM_CODECLI_MEMORY_URL: overrides memory.remote.url
//   - MEM_CODECLI_MEMORY_API_KEY: overrides memory.remote.api_key
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/memex-cli/internal/kernelerr"
	"github.com/haasonsaas/memex-cli/internal/obslog"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var exit *cliExit
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(kernelerr.ExitCode(err))
	}
}

// buildRootCmd assembles the root command and every subcommand, kept
// separate from main() so tests can inspect the command tree without
// executing it.
func buildRootCmd() *cobra.Command {
	var configPath string
	var logLevel string
	var logFormat string

	root := &cobra.Command{
		Use:          "memex",
		Short:        "memex - memory-augmented CLI supervisor",
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	deps := &cliDeps{
		configPath: &configPath,
		logLevel:   &logLevel,
		logFormat:  &logFormat,
	}

	root.AddCommand(
		buildRunCmd(deps),
		buildReplayCmd(deps),
		buildResumeCmd(deps),
		buildHTTPServerCmd(deps),
		buildStdioCmd(deps),
	)
	return root
}

// cliDeps carries the persistent flags every subcommand needs to load
// config and build a logger, threaded through instead of package
// globals so buildRootCmd stays test-friendly.
type cliDeps struct {
	configPath *string
	logLevel   *string
	logFormat  *string
}

func (d *cliDeps) logger() *obslog.Logger {
	return obslog.New(obslog.Config{Level: *d.logLevel, Format: *d.logFormat})
}
