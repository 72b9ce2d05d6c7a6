package main

import (
	"context"
	"log/slog"

	memconfig "github.com/haasonsaas/memex-cli/internal/config"
	"github.com/haasonsaas/memex-cli/internal/coordinator"
	"github.com/haasonsaas/memex-cli/internal/kernelerr"
	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/state"
)

// runtime bundles everything a subcommand needs after config has been
// loaded and wired: the raw config (for fields a command reads
// directly, like HTTPServer.Addr), a ready memory plugin, and a
// process-lifetime state manager.
type runtime struct {
	Config       memconfig.Config
	Memory       memory.Plugin
	StateManager *state.StateManager
	Logger       *slog.Logger
}

// buildRuntime loads configPath (empty means defaults + env only),
// builds the configured memory plugin, and returns everything a
// subcommand needs to construct a coordinator.Config.
func buildRuntime(ctx context.Context, configPath string, logger *slog.Logger) (*runtime, error) {
	cfg, err := memconfig.Load(configPath)
	if err != nil {
		return nil, err
	}

	plugin, err := memconfig.BuildMemoryPlugin(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sm := state.NewStateManager(cfg.ProjectID, 256)

	return &runtime{
		Config:       cfg,
		Memory:       plugin,
		StateManager: sm,
		Logger:       logger,
	}, nil
}

// coordinatorConfig turns a loaded runtime into a coordinator.Config,
// the shape internal/coordinator.Run actually consumes.
func (rt *runtime) coordinatorConfig() coordinator.Config {
	cfg := rt.Config
	return coordinator.Config{
		ProjectID:         cfg.ProjectID,
		Memory:            rt.Memory,
		Policy:            memconfig.BuildPolicy(cfg.Policy),
		State:             rt.StateManager,
		Logger:            rt.Logger,
		Gatekeeper:        memconfig.BuildGatekeeperConfig(cfg.Gatekeeper),
		Inject:            memconfig.BuildInjectConfig(cfg.Gatekeeper),
		MemorySearchLimit: cfg.Coordinator.MemorySearchLimit,
		MemoryMinScore:    cfg.Coordinator.MemoryMinScore,
		DecisionTimeout:   cfg.Coordinator.DecisionTimeout,
		FailClosed:        cfg.Coordinator.FailClosed,
		AbortGrace:        cfg.Coordinator.AbortGrace,
	}
}

// exitCodeForRun maps a completed coordinator.Run outcome to the CLI
// exit codes documented in spec.md §6: a policy-triggered abort is
// always 40 regardless of the child's own exit code, since the
// supervisor only ever calls Kill through the policy engine's abort
// path (internal/coordinator/run.go's triggerAbort). Otherwise the
// child's own exit code is passed through.
func exitCodeForRun(result coordinator.RunResult, runErr error) int {
	if runErr != nil {
		return kernelerr.ExitCode(runErr)
	}
	if result.Aborted {
		return kernelerr.PolicyDenyExitCode
	}
	return result.ExitCode
}
