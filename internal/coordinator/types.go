// Package coordinator wires the supervisor, policy, gatekeeper, memory,
// and state packages into the single end-to-end sequence that drives
// one wrapped-assistant run: create a session, search memory and build
// a prompt, start the subprocess, police its tool calls live, collect
// its outcome, evaluate it with the Gatekeeper, and persist whatever
// the Gatekeeper decided. Every dependency is supplied by the caller;
// the package holds no package-level state of its own.
package coordinator

import (
	"log/slog"
	"time"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/policy"
	"github.com/haasonsaas/memex-cli/internal/ring"
	"github.com/haasonsaas/memex-cli/internal/state"
)

// Config collects every dependency a Run needs. Nothing here is a
// singleton: callers construct one Config per process (or per test)
// and pass it explicitly to Run.
type Config struct {
	// ProjectID scopes every memory search/record call.
	ProjectID string

	Memory     memory.Plugin
	Policy     *policy.ConfigPolicy
	State      *state.StateManager
	Logger     *slog.Logger
	EventsSink *ring.EventsOutTx

	Gatekeeper gatekeeper.Config
	Inject     gatekeeper.InjectConfig

	// MemorySearchLimit and MemoryMinScore bound Plugin.Search.
	MemorySearchLimit int
	MemoryMinScore    float32

	// DecisionTimeout and FailClosed parameterize the per-run
	// policy.Engine. AbortGrace is the grace period AbortSequence
	// waits before force-killing a denied session.
	DecisionTimeout time.Duration
	FailClosed      bool
	AbortGrace      time.Duration
}

// RunRequest is the caller-supplied input to one run.
type RunRequest struct {
	Cmd       string
	Args      []string
	Env       []string
	Dir       string
	UserQuery string
}

// RunResult is everything a caller might want to know about a
// completed (or failed-to-start) run.
type RunResult struct {
	SessionID     string
	RunID         string
	FinalPrompt   string
	InjectedItems []gatekeeper.InjectItem
	Decision      gatekeeper.Decision
	Phase         state.RuntimePhase
	ExitCode      int
	Aborted       bool
	AbortReason   string
}
