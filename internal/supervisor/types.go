// Package supervisor spawns and drives a wrapped assistant subprocess:
// it owns the child's stdin/stdout/stderr pipes, pumps stdout/stderr
// lines into bounded tail buffers, parses stdout lines into tool events
// (each handed to an optional OnToolEvent callback), and exposes a control
// channel for sending JSON commands (policy decisions, abort) back to
// the child's stdin.
package supervisor

import (
	"time"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

// Signal identifies a way to terminate a running session.
type Signal int

const (
	// SignalTerm asks the child to shut down gracefully (SIGTERM on unix).
	SignalTerm Signal = iota
	// SignalKill forces termination (SIGKILL on unix).
	SignalKill
)

// StartArgs configures a new session's subprocess.
type StartArgs struct {
	Cmd      string
	Args     []string
	Env      []string
	Dir      string
	RunID    string
	StdinTTL time.Duration

	// OnToolEvent, if set, is invoked synchronously on the stdout pump
	// goroutine for every tool event observed, in arrival order, after
	// it has been added to the batch Wait eventually returns. The Session
	// passed in is the same one Start returns, already fully
	// constructed, so a handler can call SendControl/Signal on it
	// without racing the caller's own assignment of Start's result.
	// The Run Coordinator uses this to apply Policy decisions to
	// tool.request events as they happen instead of after the child
	// exits.
	OnToolEvent func(sess *Session, ev toolevent.Event)
}

// RunOutcome is the terminal result of a supervised session, handed to
// the Gatekeeper alongside the run's ToolEvents.
type RunOutcome struct {
	RunID        string
	ExitCode     int
	DurationMS   int64
	StdoutTail   string
	StderrTail   string
	ToolEvents   []toolevent.Event
	DroppedLines uint64
	Aborted      bool
	AbortReason  string

	// ShownQAIDs lists the QA items the Run Coordinator injected into
	// this session's prompt, set after Wait returns. UsedQAIDs is
	// populated by the caller after scanning the final answer for
	// [QA_REF id] anchors, prior to handing the outcome to Gatekeeper.
	ShownQAIDs []string
	UsedQAIDs  []string
}
