// Package gatekeeper implements the pure, no-I/O decision function that
// turns a completed session's memory matches, run outcome, and tool
// events into a plan of what to inject, what hits/validations to
// record, and what candidate answer (if any) to write back to memory.
package gatekeeper

import (
	"encoding/json"

	"github.com/haasonsaas/memex-cli/internal/memory"
)

// Config tunes every threshold the decision stages consult. There is
// no I/O here; all values are supplied by the caller.
type Config struct {
	MinLevelInject          int
	ActiveStatuses          []string
	ExcludeStaleByDefault   bool
	MinTrustShow            float32
	MaxInject               int
	SkipIfTop1ScoreGE       float32
	BlockIfConsecutiveFailGE int
	StrictSecretBlock       bool
	MaxAnswerChars          int
	MinAnswerChars          int
}

// DefaultConfig mirrors the grounding source's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinLevelInject:           1,
		ActiveStatuses:           []string{"active"},
		ExcludeStaleByDefault:    true,
		MinTrustShow:             0.5,
		MaxInject:                3,
		SkipIfTop1ScoreGE:        0.97,
		BlockIfConsecutiveFailGE: 3,
		StrictSecretBlock:        true,
		MaxAnswerChars:           1200,
		MinAnswerChars:           200,
	}
}

// InjectItem is one memory match selected for prompt injection.
type InjectItem struct {
	QAID            string   `json:"qa_id"`
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	Summary         string   `json:"summary,omitempty"`
	Trust           float32  `json:"trust"`
	ValidationLevel int      `json:"validation_level"`
	Score           float32  `json:"score"`
	Tags            []string `json:"tags,omitempty"`
}

// HitRef records whether a QA item was shown and/or used in a session.
type HitRef struct {
	QAID      string `json:"qa_id"`
	Shown     bool   `json:"shown"`
	Used      bool   `json:"used"`
	MessageID string `json:"message_id,omitempty"`
	Context   string `json:"context,omitempty"`
}

// ValidatePlan is one validation-signal write derived from the run's
// outcome for a QA item that was actually used.
type ValidatePlan struct {
	QAID           string          `json:"qa_id"`
	Result         string          `json:"result"` // pass | fail | unknown
	SignalStrength string          `json:"signal_strength"` // strong | weak
	StrongSignal   bool            `json:"strong_signal"`
	Context        json.RawMessage `json:"context,omitempty"`
}

// Decision is the Gatekeeper's sole output: a value with no side
// effects. The caller (Run Coordinator) performs every write it names.
type Decision struct {
	InjectList           []InjectItem              `json:"inject_list"`
	ShouldWriteCandidate bool                       `json:"should_write_candidate"`
	HitRefs              []HitRef                   `json:"hit_refs"`
	ValidatePlans        []ValidatePlan             `json:"validate_plans"`
	Reasons              []string                   `json:"reasons"`
	Signals              map[string]any             `json:"signals"`
	CandidateDrafts      []memory.CandidateDraft    `json:"candidate_drafts"`
}
