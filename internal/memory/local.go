package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/memex-cli/internal/memory/embeddings"
	"github.com/haasonsaas/memex-cli/internal/memory/store"
)

const (
	defaultSearchLimit = 5
	defaultMinScore    = 0.0
)

// LocalConfig configures LocalPlugin.
type LocalConfig struct {
	DBPath      string
	SearchLimit int
	MinScore    float32
}

// LocalPlugin is a fully offline Plugin backed by a sqlite store and a
// pluggable embeddings provider.
type LocalPlugin struct {
	db       *store.Store
	embedder embeddings.Provider
	cfg      LocalConfig
}

// NewLocalPlugin opens (or creates) the sqlite store at cfg.DBPath and
// returns a Plugin that embeds queries/answers with embedder.
func NewLocalPlugin(ctx context.Context, cfg LocalConfig, embedder embeddings.Provider) (*LocalPlugin, error) {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("memory: local plugin: %w", err)
	}
	return &LocalPlugin{db: db, embedder: embedder, cfg: cfg}, nil
}

// Close releases the underlying sqlite handle.
func (p *LocalPlugin) Close() error { return p.db.Close() }

// Name identifies this provider for logging/diagnostics.
func (p *LocalPlugin) Name() string { return "local" }

// Search embeds payload.Query and ranks stored items by cosine
// similarity, applying payload-level overrides of the configured
// limit/min-score defaults.
func (p *LocalPlugin) Search(ctx context.Context, payload SearchPayload) ([]SearchMatch, error) {
	limit := payload.Limit
	if limit <= 0 {
		limit = p.cfg.SearchLimit
	}
	minScore := payload.MinScore
	if minScore <= 0 {
		minScore = p.cfg.MinScore
	}

	queryEmbedding, err := p.embedder.Embed(ctx, payload.Query)
	if err != nil {
		return nil, fmt.Errorf("memory: local search: embed query: %w", err)
	}

	matches, err := p.db.Search(ctx, payload.ProjectID, queryEmbedding, limit, minScore)
	if err != nil {
		return nil, fmt.Errorf("memory: local search: %w", err)
	}
	return matches, nil
}

// RecordHit persists one shown/used reference per payload entry.
func (p *LocalPlugin) RecordHit(ctx context.Context, payload HitsPayload) error {
	for _, ref := range payload.References {
		shown := true
		if ref.Shown != nil {
			shown = *ref.Shown
		}
		rec := HitRecord{
			QAID:  ref.QAID,
			Shown: shown,
			Used:  ref.Used,
		}
		if err := p.db.AddHit(ctx, rec); err != nil {
			return fmt.Errorf("memory: local record hit: %w", err)
		}
	}
	return nil
}

// RecordCandidate embeds the candidate's question and answer together
// and upserts a new QA item for it.
func (p *LocalPlugin) RecordCandidate(ctx context.Context, payload CandidatePayload) error {
	embedding, err := p.embedder.Embed(ctx, payload.Question+"\n"+payload.Answer)
	if err != nil {
		return fmt.Errorf("memory: local record candidate: embed: %w", err)
	}

	item := QAItem{
		ProjectID:  payload.ProjectID,
		Question:   payload.Question,
		Answer:     payload.Answer,
		Tags:       payload.Tags,
		Confidence: payload.Confidence,
		Source:     payload.Source,
		Author:     payload.Author,
		Embedding:  embedding,
	}
	if payload.Metadata != nil {
		item.Metadata = mustMarshal(payload.Metadata)
	}

	if _, err := p.db.UpsertQA(ctx, item); err != nil {
		return fmt.Errorf("memory: local record candidate: %w", err)
	}
	return nil
}

// RecordValidation persists one outcome evaluation against a QA item.
func (p *LocalPlugin) RecordValidation(ctx context.Context, payload ValidationPayload) error {
	rec := ValidationRecord{
		QAID:    payload.QAID,
		Result:  payload.Result,
		Signal:  payload.SignalStrength,
		Success: payload.Success,
	}
	if payload.Context != nil {
		rec.Context = mustMarshal(payload.Context)
	}
	if err := p.db.AddValidation(ctx, rec); err != nil {
		return fmt.Errorf("memory: local record validation: %w", err)
	}
	return nil
}

// TaskGrade is not implemented locally; grading requires a remote
// classifier. Matches the grounding source's local provider, which
// returns an "unknown" grade with zero confidence rather than erroring.
func (p *LocalPlugin) TaskGrade(ctx context.Context, prompt string) (TaskGradeResult, error) {
	return TaskGradeResult{TaskLevel: "unknown", Reason: "local provider cannot grade tasks", Confidence: 0}, nil
}

func mustMarshal(v map[string]any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
