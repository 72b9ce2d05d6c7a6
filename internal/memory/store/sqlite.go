// Package store provides the sqlite-backed local QA item store used by
// memory.LocalPlugin: qa_items, plus hit_records and validation_records
// for learning-signal bookkeeping, searched with brute-force cosine
// similarity over stored embeddings.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/haasonsaas/memex-cli/internal/memory"
)

// Store is a sqlite-backed QA item store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path and ensures schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory store: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS qa_items (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			tags TEXT,
			confidence REAL NOT NULL DEFAULT 0,
			validation_level INTEGER NOT NULL DEFAULT 0,
			source TEXT,
			author TEXT,
			metadata TEXT,
			embedding TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_qa_items_project ON qa_items(project_id)`,
		`CREATE TABLE IF NOT EXISTS hit_records (
			id TEXT PRIMARY KEY,
			qa_id TEXT NOT NULL,
			shown INTEGER NOT NULL,
			used INTEGER,
			session_id TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS validation_records (
			id TEXT PRIMARY KEY,
			qa_id TEXT NOT NULL,
			result TEXT NOT NULL,
			signal_strength TEXT NOT NULL,
			success INTEGER,
			context TEXT,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("memory store: init schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// UpsertQA inserts or replaces a QA item, generating an id if missing.
func (s *Store) UpsertQA(ctx context.Context, item memory.QAItem) (memory.QAItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	tagsJSON, _ := json.Marshal(item.Tags)
	embJSON := serializeEmbedding(item.Embedding)
	meta := item.Metadata
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO qa_items (id, project_id, question, answer, tags, confidence, validation_level, source, author, metadata, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question=excluded.question, answer=excluded.answer, tags=excluded.tags,
			confidence=excluded.confidence, validation_level=excluded.validation_level,
			source=excluded.source, author=excluded.author, metadata=excluded.metadata,
			embedding=excluded.embedding, updated_at=excluded.updated_at
	`, item.ID, item.ProjectID, item.Question, item.Answer, string(tagsJSON),
		item.Confidence, int(item.ValidationLevel), item.Source, item.Author,
		string(meta), embJSON, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return memory.QAItem{}, fmt.Errorf("memory store: upsert qa item: %w", err)
	}
	return item, nil
}

// Search ranks stored QA items for projectID by cosine similarity
// against queryEmbedding, filtering to score >= minScore and returning
// at most limit matches, best first.
func (s *Store) Search(ctx context.Context, projectID string, queryEmbedding []float32, limit int, minScore float32) ([]memory.SearchMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, question, answer, tags, confidence, validation_level, source, metadata, embedding, updated_at
		FROM qa_items WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("memory store: search query: %w", err)
	}
	defer rows.Close()

	type scored struct {
		match memory.SearchMatch
		score float32
	}
	var all []scored

	for rows.Next() {
		var (
			id, pid, question, answer, tagsJSON, source, metaJSON, embText string
			confidence                                                    float64
			validationLevel                                               int
			updatedAt                                                     time.Time
		)
		if err := rows.Scan(&id, &pid, &question, &answer, &tagsJSON, &confidence, &validationLevel, &source, &metaJSON, &embText, &updatedAt); err != nil {
			return nil, fmt.Errorf("memory store: scan row: %w", err)
		}
		embedding := deserializeEmbedding(embText)
		score := cosineSimilarity(queryEmbedding, embedding)
		if score < minScore {
			continue
		}
		var tags []string
		_ = json.Unmarshal([]byte(tagsJSON), &tags)

		all = append(all, scored{score: score, match: memory.SearchMatch{
			QAID:            id,
			ProjectID:       pid,
			Question:        question,
			Answer:          answer,
			Tags:            tags,
			Score:           score,
			Relevance:       score,
			ValidationLevel: validationLevel,
			Trust:           float32(confidence),
			Freshness:       memory.Freshness(updatedAt),
			Confidence:      float32(confidence),
			Status:          "active",
			Source:          source,
			Metadata:        json.RawMessage(metaJSON),
		}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].score > all[i].score {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]memory.SearchMatch, len(all))
	for i, a := range all {
		out[i] = a.match
	}
	return out, nil
}

// AddHit persists one hit record.
func (s *Store) AddHit(ctx context.Context, h memory.HitRecord) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	var used sql.NullBool
	if h.Used != nil {
		used = sql.NullBool{Bool: *h.Used, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hit_records (id, qa_id, shown, used, session_id, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, h.ID, h.QAID, boolToInt(h.Shown), nullableBoolToInt(used), h.SessionID, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("memory store: add hit: %w", err)
	}
	return nil
}

// AddValidation persists one validation record.
func (s *Store) AddValidation(ctx context.Context, v memory.ValidationRecord) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	var success sql.NullBool
	if v.Success != nil {
		success = sql.NullBool{Bool: *v.Success, Valid: true}
	}
	ctxJSON := v.Context
	if len(ctxJSON) == 0 {
		ctxJSON = json.RawMessage("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validation_records (id, qa_id, result, signal_strength, success, context, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.QAID, v.Result, v.Signal, nullableBoolToInt(success), string(ctxJSON), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("memory store: add validation: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableBoolToInt(b sql.NullBool) any {
	if !b.Valid {
		return nil
	}
	return boolToInt(b.Bool)
}

func serializeEmbedding(emb []float32) string {
	if len(emb) == 0 {
		return ""
	}
	b, _ := json.Marshal(emb)
	return string(b)
}

func deserializeEmbedding(s string) []float32 {
	if s == "" {
		return nil
	}
	var emb []float32
	_ = json.Unmarshal([]byte(s), &emb)
	return emb
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
