package memory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHybridPluginServesReadsAndWritesFromLocal(t *testing.T) {
	local := newTestLocalPlugin(t)
	h := NewHybridPlugin(context.Background(), HybridConfig{}, local, nil)
	t.Cleanup(func() { h.Close() })

	ctx := t.Context()
	if err := h.RecordCandidate(ctx, CandidatePayload{ProjectID: "proj", Question: "q", Answer: "a"}); err != nil {
		t.Fatalf("record candidate: %v", err)
	}
	matches, err := h.Search(ctx, SearchPayload{ProjectID: "proj", Query: "q"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestHybridPluginWithoutRemoteClosesImmediately(t *testing.T) {
	local := newTestLocalPlugin(t)
	h := NewHybridPlugin(context.Background(), HybridConfig{}, local, nil)
	select {
	case <-h.done:
	default:
		t.Fatal("expected done to be closed when no remote is configured")
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestHybridPluginTriggerSyncRunsHealthCheck(t *testing.T) {
	hit := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case hit <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	local := newTestLocalPlugin(t)
	h := NewHybridPlugin(context.Background(), HybridConfig{
		RemoteBaseURL: srv.URL,
		SyncInterval:  time.Hour,
	}, local, nil)
	t.Cleanup(func() { h.Close() })

	select {
	case <-hit:
	case <-time.After(2 * time.Second):
		t.Fatal("expected initial sync to hit remote health check")
	}

	status := h.Status()
	if status.LastSyncAt.IsZero() {
		t.Fatal("expected LastSyncAt to be set after sync")
	}
	if status.LastError != "" {
		t.Fatalf("expected no sync error, got %q", status.LastError)
	}
}
