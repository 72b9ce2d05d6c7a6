// Package state tracks the lifecycle of a single run as it moves through
// memory search, runner execution, tool-event processing, and gatekeeper
// evaluation, and persists periodic snapshots so a crashed run can be
// inspected or resumed.
package state

import (
	"time"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
)

// RuntimePhase enumerates the stages a run passes through. Phases only
// move forward, except the deliberate ProcessingToolEvents<->RunnerRunning
// cycle: a runner emits tool events in bursts while it keeps running.
type RuntimePhase string

const (
	PhaseIdle                 RuntimePhase = "idle"
	PhaseInitializing         RuntimePhase = "initializing"
	PhaseMemorySearch         RuntimePhase = "memory_search"
	PhaseRunnerStarting       RuntimePhase = "runner_starting"
	PhaseRunnerRunning        RuntimePhase = "runner_running"
	PhaseProcessingToolEvents RuntimePhase = "processing_tool_events"
	PhaseGatekeeperEvaluating RuntimePhase = "gatekeeper_evaluating"
	PhaseMemoryPersisting     RuntimePhase = "memory_persisting"
	PhaseCompleted            RuntimePhase = "completed"
	PhaseFailed               RuntimePhase = "failed"
)

// IsTerminal reports whether phase accepts no further transitions.
func (p RuntimePhase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// GatekeeperDecisionSnapshot is the subset of a gatekeeper.Decision worth
// carrying in run state: enough to explain the decision without pinning
// the full inject list and candidate drafts in memory for the run's life.
type GatekeeperDecisionSnapshot struct {
	ShouldWriteCandidate bool           `json:"should_write_candidate"`
	Reasons              []string       `json:"reasons"`
	Signals              map[string]any `json:"signals"`
}

// SnapshotFromDecision extracts the fields RunState keeps from a full
// gatekeeper.Decision.
func SnapshotFromDecision(d gatekeeper.Decision) GatekeeperDecisionSnapshot {
	return GatekeeperDecisionSnapshot{
		ShouldWriteCandidate: d.ShouldWriteCandidate,
		Reasons:              append([]string(nil), d.Reasons...),
		Signals:              d.Signals,
	}
}

// RuntimeMetrics records per-stage timing for a single run.
type RuntimeMetrics struct {
	StartupDurationMS      *int64   `json:"startup_duration_ms,omitempty"`
	MemorySearchDurationMS *int64   `json:"memory_search_duration_ms,omitempty"`
	RunnerDurationMS       *int64   `json:"runner_duration_ms,omitempty"`
	TotalDurationMS        *int64   `json:"total_duration_ms,omitempty"`
	EventsPerSecond        *float64 `json:"events_per_second,omitempty"`
}

// RuntimeState is the live, per-run state tracked while a run executes.
type RuntimeState struct {
	RunID              string                      `json:"run_id,omitempty"`
	RunnerPID          int                         `json:"runner_pid,omitempty"`
	Phase              RuntimePhase                `json:"phase"`
	ToolEventsCount    int                         `json:"tool_events_count"`
	MemoryHits         int                         `json:"memory_hits"`
	GatekeeperDecision *GatekeeperDecisionSnapshot `json:"gatekeeper_decision,omitempty"`
	Metrics            RuntimeMetrics              `json:"metrics"`
}

// NewRuntimeState returns a RuntimeState in PhaseIdle for the given run ID
// (empty if not yet assigned, e.g. before the runner is spawned).
func NewRuntimeState(runID string) RuntimeState {
	return RuntimeState{RunID: runID, Phase: PhaseIdle}
}

// AppState is process-wide state shared across all sessions.
type AppState struct {
	StartedAt         time.Time `json:"started_at"`
	ActiveSessions    int       `json:"active_sessions"`
	CompletedSessions int       `json:"completed_sessions"`
	ConfigVersion     string    `json:"config_version"`
	MaintenanceMode   bool      `json:"maintenance_mode"`
}

// NewAppState returns the process-wide state at startup.
func NewAppState(configVersion string) AppState {
	return AppState{
		StartedAt:     time.Now().UTC(),
		ConfigVersion: configVersion,
	}
}
