package store

import (
	"context"
	"testing"

	"github.com/haasonsaas/memex-cli/internal/memory"
)

func mustOpen(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndSearchRanksByCosineSimilarity(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()

	_, err := s.UpsertQA(ctx, memory.QAItem{
		ProjectID: "p1", Question: "how do I retry", Answer: "use exponential backoff",
		Embedding: []float32{1, 0, 0},
	})
	if err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	_, err = s.UpsertQA(ctx, memory.QAItem{
		ProjectID: "p1", Question: "unrelated", Answer: "unrelated answer",
		Embedding: []float32{0, 1, 0},
	})
	if err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	matches, err := s.Search(ctx, "p1", []float32{1, 0, 0}, 5, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Question != "how do I retry" {
		t.Fatalf("expected closest match first, got %q", matches[0].Question)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("expected descending score order, got %f then %f", matches[0].Score, matches[1].Score)
	}
}

func TestSearchFiltersByProjectAndMinScore(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()

	if _, err := s.UpsertQA(ctx, memory.QAItem{ProjectID: "p1", Question: "q", Answer: "a", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertQA(ctx, memory.QAItem{ProjectID: "p2", Question: "q2", Answer: "a2", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := s.Search(ctx, "p1", []float32{1, 0}, 5, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected project filter to exclude p2, got %d matches", len(matches))
	}

	none, err := s.Search(ctx, "p1", []float32{0, 1}, 5, 0.99)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected min score filter to exclude orthogonal match, got %d", len(none))
	}
}

func TestUpsertQAGeneratesID(t *testing.T) {
	s := mustOpen(t)
	item, err := s.UpsertQA(context.Background(), memory.QAItem{ProjectID: "p1", Question: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestAddHitAndValidation(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()
	item, err := s.UpsertQA(ctx, memory.QAItem{ProjectID: "p1", Question: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	used := true
	if err := s.AddHit(ctx, memory.HitRecord{QAID: item.ID, Shown: true, Used: &used}); err != nil {
		t.Fatalf("add hit: %v", err)
	}

	success := true
	if err := s.AddValidation(ctx, memory.ValidationRecord{QAID: item.ID, Result: "pass", Signal: "strong", Success: &success}); err != nil {
		t.Fatalf("add validation: %v", err)
	}
}
