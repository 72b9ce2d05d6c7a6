package state

import "fmt"

// TransitionError reports an illegal RuntimePhase move.
type TransitionError struct {
	From RuntimePhase
	To   RuntimePhase
}

func (e *TransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("state: cannot transition from terminal state %s", e.From)
	}
	return fmt.Sprintf("state: invalid transition from %s to %s", e.From, e.To)
}

var forwardPhase = map[RuntimePhase]RuntimePhase{
	PhaseIdle:                 PhaseInitializing,
	PhaseInitializing:         PhaseMemorySearch,
	PhaseMemorySearch:         PhaseRunnerStarting,
	PhaseRunnerStarting:       PhaseRunnerRunning,
	PhaseRunnerRunning:        PhaseProcessingToolEvents,
	PhaseProcessingToolEvents: PhaseGatekeeperEvaluating,
	PhaseGatekeeperEvaluating: PhaseMemoryPersisting,
	PhaseMemoryPersisting:     PhaseCompleted,
}

// ValidateTransition reports whether moving from -> to is legal. Any phase
// may move to Completed or Failed (a run can be aborted at any point), the
// runner may cycle between RunnerRunning and ProcessingToolEvents while it
// streams tool events, and no move is legal out of a terminal phase.
func ValidateTransition(from, to RuntimePhase) error {
	if from.IsTerminal() {
		return &TransitionError{From: from, To: to}
	}
	if to == PhaseCompleted || to == PhaseFailed {
		return nil
	}
	if from == PhaseProcessingToolEvents && to == PhaseRunnerRunning {
		return nil
	}
	if forwardPhase[from] == to {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

// NextPhase returns the phase that normally follows current, or "" if
// current is terminal.
func NextPhase(current RuntimePhase) RuntimePhase {
	return forwardPhase[current]
}

// IsTerminal reports whether phase accepts no further transitions.
func IsTerminal(phase RuntimePhase) bool {
	return phase.IsTerminal()
}
