package coordinator

import (
	"log/slog"

	"github.com/haasonsaas/memex-cli/internal/state"
)

// stateReporter mirrors tool-event arrival into the StateManager: the
// first event moves a session into ProcessingToolEvents, and every
// event after that just bumps its counter. A nil manager makes every
// method a no-op, so Run can be exercised without a StateManager in
// tests that don't care about session bookkeeping.
type stateReporter struct {
	manager        *state.StateManager
	sessionID      string
	logger         *slog.Logger
	toolEventsSeen bool
}

func newStateReporter(manager *state.StateManager, sessionID string, logger *slog.Logger) *stateReporter {
	return &stateReporter{manager: manager, sessionID: sessionID, logger: logger}
}

// onToolEvent records one observed tool event.
func (r *stateReporter) onToolEvent() {
	if r.manager == nil {
		return
	}
	if !r.toolEventsSeen {
		r.toolEventsSeen = true
		if err := r.manager.TransitionSession(r.sessionID, state.PhaseProcessingToolEvents); err != nil {
			r.logger.Warn("state: transition to processing_tool_events failed", "session_id", r.sessionID, "error", err)
		}
	}
	if err := r.manager.RecordToolEvents(r.sessionID, 1); err != nil {
		r.logger.Warn("state: record tool event failed", "session_id", r.sessionID, "error", err)
	}
}

// onMemoryHits records how many memory items were selected for
// injection into the run's prompt.
func (r *stateReporter) onMemoryHits(n int) {
	if r.manager == nil || n == 0 {
		return
	}
	if err := r.manager.RecordMemoryHits(r.sessionID, n); err != nil {
		r.logger.Warn("state: record memory hits failed", "session_id", r.sessionID, "error", err)
	}
}

// transition moves the session to phase, logging (not failing the
// run) on an illegal transition.
func (r *stateReporter) transition(phase state.RuntimePhase) {
	if r.manager == nil {
		return
	}
	if err := r.manager.TransitionSession(r.sessionID, phase); err != nil {
		r.logger.Warn("state: transition failed", "session_id", r.sessionID, "phase", phase, "error", err)
	}
}

func (r *stateReporter) fail(cause error) {
	if r.manager == nil {
		return
	}
	if err := r.manager.FailSession(r.sessionID, cause); err != nil {
		r.logger.Warn("state: fail session failed", "session_id", r.sessionID, "error", err)
	}
}
