// Package memory implements the Q/A memory client used to ground
// wrapped-assistant sessions in prior answers and to record new
// candidate answers mined from a session's transcript. Three provider
// implementations share the Plugin interface: Remote (HTTP+bearer
// against a central memory service), Local (sqlite-backed, fully
// offline), and Hybrid (served from Local, with a background health
// check of Remote).
package memory

import (
	"context"
	"encoding/json"
	"time"
)

// ValidationLevel tracks how many times a QA item's answer has been
// confirmed correct by a later session.
type ValidationLevel int

const (
	ValidationUnknown ValidationLevel = iota
	ValidationWeak
	ValidationStrong
)

// QAItem is one stored question/answer pair.
type QAItem struct {
	ID              string
	ProjectID       string
	Question        string
	Answer          string
	Tags            []string
	Confidence      float32
	ValidationLevel ValidationLevel
	Source          string
	Author          string
	Metadata        json.RawMessage
	Embedding       []float32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SearchMatch is one ranked result of a memory search, carrying enough
// provenance for the Gatekeeper to decide whether to inject it.
type SearchMatch struct {
	QAID            string          `json:"qa_id"`
	ProjectID       string          `json:"project_id,omitempty"`
	Question        string          `json:"question"`
	Answer          string          `json:"answer"`
	Tags            []string        `json:"tags,omitempty"`
	Score           float32         `json:"score"`
	Relevance       float32         `json:"relevance"`
	ValidationLevel int             `json:"validation_level"`
	Trust           float32         `json:"trust"`
	Freshness       float32         `json:"freshness"`
	Confidence      float32         `json:"confidence"`
	Status          string          `json:"status"`
	Summary         string          `json:"summary,omitempty"`
	Source          string          `json:"source,omitempty"`
	ExpiryAt        *time.Time      `json:"expiry_at,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

// CandidateDraft is a heuristically-extracted candidate answer waiting
// to be recorded against a project's memory.
type CandidateDraft struct {
	Question   string
	Answer     string
	Tags       []string
	Confidence float32
	Metadata   map[string]any
	Summary    string
	Source     string
}

// SearchPayload is the request shape for Plugin.Search.
type SearchPayload struct {
	ProjectID string
	Query     string
	Limit     int
	MinScore  float32
}

// ReferencePayload records one inject-or-use event for a QA item.
type ReferencePayload struct {
	QAID      string
	Shown     *bool
	Used      *bool
	MessageID string
	Context   string
}

// HitsPayload batches hit references from one evaluated session.
type HitsPayload struct {
	ProjectID  string
	References []ReferencePayload
}

// CandidatePayload is the request shape for Plugin.RecordCandidate.
type CandidatePayload struct {
	ProjectID  string
	Question   string
	Answer     string
	Tags       []string
	Confidence float32
	Metadata   map[string]any
	Summary    string
	Source     string
	Author     string
}

// ValidationPayload is the request shape for Plugin.RecordValidation.
type ValidationPayload struct {
	ProjectID      string
	QAID           string
	Result         string // "pass", "fail", "unknown"
	SignalStrength string // "strong", "weak"
	Success        *bool
	Source         string
	Context        map[string]any
	Client         string
}

// TaskGradeResult classifies the difficulty of a prompt, used to route
// it to a cheaper or stronger model before a session is spawned.
type TaskGradeResult struct {
	TaskLevel                string
	Reason                   string
	RecommendedModel         string
	RecommendedModelProvider string
	Confidence               float32
}

// Plugin is the interface shared by the Remote, Local, and Hybrid
// memory providers.
type Plugin interface {
	Name() string
	Search(ctx context.Context, payload SearchPayload) ([]SearchMatch, error)
	RecordHit(ctx context.Context, payload HitsPayload) error
	RecordCandidate(ctx context.Context, payload CandidatePayload) error
	RecordValidation(ctx context.Context, payload ValidationPayload) error
	TaskGrade(ctx context.Context, prompt string) (TaskGradeResult, error)
}

// HitRecord tracks one inject/use event against a QA item.
type HitRecord struct {
	ID        string
	QAID      string
	Shown     bool
	Used      *bool
	SessionID string
	CreatedAt time.Time
}

// ValidationRecord tracks one outcome evaluation against a QA item.
type ValidationRecord struct {
	ID         string
	QAID       string
	Result     string
	Signal     string
	Success    *bool
	Context    json.RawMessage
	CreatedAt  time.Time
}
