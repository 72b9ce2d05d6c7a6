// Package httpserver exposes the kernel's run/replay/resume operations
// and a thin memory passthrough over HTTP, for external integrations
// that would rather speak JSON than drive the CLI directly. It mirrors
// cli/src/http/{server,middleware,state}.rs's documented surface: a
// localhost-only CORS policy, a 30s request timeout, and a
// ~/.memex/servers/memex.state lifecycle file written on start and
// removed on graceful shutdown — ported to the teacher's stdlib
// net/http.ServeMux style (internal/gateway/http_server.go) rather than
// a third-party router, since nothing in the retrieval pack wires one
// in Go.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/memex-cli/internal/coordinator"
	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/replay"
	"github.com/haasonsaas/memex-cli/internal/ring"
	"github.com/haasonsaas/memex-cli/internal/state"
)

// Config configures a Server.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	StateFilePath  string // defaults to ~/.memex/servers/memex.state

	Coordinator coordinator.Config
	Memory      memory.Plugin
	Logger      *slog.Logger
}

// Server is the memex HTTP collaborator.
type Server struct {
	cfg       Config
	sessionID string
	startTime time.Time
	srv       *http.Server

	mu     sync.Mutex
	stats  requestStats
	logger *slog.Logger
}

type requestStats struct {
	total    uint64
	byRoute  map[string]uint64
	errTotal uint64
}

// New builds a Server bound to cfg. It does not start listening.
func New(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.StateFilePath == "" {
		cfg.StateFilePath = defaultStateFilePath()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		startTime: time.Now(),
		stats:     requestStats{byRoute: map[string]uint64{}},
		logger:    logger,
	}
}

func defaultStateFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".memex", "servers", "memex.state")
	}
	return filepath.Join(home, ".memex", "servers", "memex.state")
}

// ListenAndServe starts the server, writes the state lifecycle file,
// and blocks until ctx is canceled, at which point it shuts down
// gracefully and removes the state file.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/exec/run", s.handleExecRun)
	mux.HandleFunc("/exec/replay", s.handleExecReplay)
	mux.HandleFunc("/exec/resume", s.handleExecResume)
	mux.HandleFunc("/api/v1/search", s.handleAPISearch)
	mux.HandleFunc("/api/v1/record-candidate", s.handleAPIRecordCandidate)
	mux.HandleFunc("/api/v1/record-hit", s.handleAPIRecordHit)
	mux.HandleFunc("/api/v1/validate", s.handleAPIValidate)

	handler := corsMiddleware(s.instrument(mux))

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.cfg.Addr, err)
	}

	s.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := s.writeStateFile(listener.Addr().String()); err != nil {
		s.logger.Warn("httpserver: write state file failed", "error", err)
	}
	defer s.removeStateFile()

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	s.logger.Info("httpserver: listening", "addr", listener.Addr().String(), "session_id", s.sessionID)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("httpserver: shutdown error", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

type stateFile struct {
	SessionID string `json:"session_id"`
	Addr      string `json:"addr"`
	PID       int    `json:"pid"`
	URL       string `json:"url"`
	StartedAt string `json:"started_at"`
}

func (s *Server) writeStateFile(addr string) error {
	dir := filepath.Dir(s.cfg.StateFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create servers dir: %w", err)
	}
	payload := stateFile{
		SessionID: s.sessionID,
		Addr:      addr,
		PID:       os.Getpid(),
		URL:       "http://" + addr,
		StartedAt: s.startTime.UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cfg.StateFilePath, data, 0o644)
}

func (s *Server) removeStateFile() {
	if err := os.Remove(s.cfg.StateFilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("httpserver: remove state file failed", "error", err)
	}
}

// corsMiddleware allows only http(s)://localhost and http(s)://127.0.0.1
// origins, matching cli/src/http/middleware.rs's predicate-based CORS
// layer.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isLocalOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLocalOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.mu.Lock()
		s.stats.total++
		s.stats.byRoute[r.URL.Path]++
		s.mu.Unlock()
		s.logger.Info("httpserver: request", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"session_id":     s.sessionID,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

// handleExecRun drives one coordinator.Run, streaming tool-event JSONL
// lines as they occur and finishing with a "[Exit: <n>]" terminator
// line, per spec.md/cli/src/http/routes.rs's exec endpoint contract.
func (s *Server) handleExecRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Cmd       string   `json:"cmd"`
		Args      []string `json:"args"`
		Env       []string `json:"env"`
		Dir       string   `json:"dir"`
		UserQuery string   `json:"user_query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	sink := ring.NewEventsOutTx(flushWriter{w: w, flusher: flusher}, 256)
	cfg := s.cfg.Coordinator
	cfg.EventsSink = sink
	cfg.Memory = s.cfg.Memory

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	result, err := coordinator.Run(ctx, cfg, coordinator.RunRequest{
		Cmd: req.Cmd, Args: req.Args, Env: req.Env, Dir: req.Dir, UserQuery: req.UserQuery,
	})
	sink.Close()

	if err != nil {
		fmt.Fprintf(w, "[Exit: 50]\n")
		return
	}
	fmt.Fprintf(w, "[Exit: %d]\n", result.ExitCode)
}

type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return n, err
}

func (s *Server) handleExecReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		EventsFile string `json:"events_file"`
		RunID      string `json:"run_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	f, err := os.Open(req.EventsFile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer f.Close()

	runs, err := replay.ParseEvents(f, req.RunID)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "replay parse failed: %v\n[Exit: 20]\n", err)
		return
	}
	report := replay.BuildReport(runs)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, replay.FormatText(report))
	fmt.Fprintf(w, "[Exit: 0]\n")
}

func (s *Server) handleExecResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SnapshotDir string `json:"snapshot_dir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	mgr, err := state.NewSnapshotManager(req.SnapshotDir, 1)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "resume failed: %v\n[Exit: 20]\n", err)
		return
	}
	snapshot, ok, err := mgr.LoadLatest()
	if err != nil || !ok {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "no snapshot to resume\n[Exit: 20]\n")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "resumed snapshot %s (%d sessions)\n[Exit: 0]\n", snapshot.SnapshotID, len(snapshot.Sessions))
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Memory == nil {
		http.Error(w, "memory plugin not configured", http.StatusServiceUnavailable)
		return
	}
	var payload memory.SearchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	matches, err := s.cfg.Memory.Search(r.Context(), payload)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleAPIRecordCandidate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Memory == nil {
		http.Error(w, "memory plugin not configured", http.StatusServiceUnavailable)
		return
	}
	var payload memory.CandidatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.Memory.RecordCandidate(r.Context(), payload); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAPIRecordHit(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Memory == nil {
		http.Error(w, "memory plugin not configured", http.StatusServiceUnavailable)
		return
	}
	var payload memory.HitsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.Memory.RecordHit(r.Context(), payload); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAPIValidate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Memory == nil {
		http.Error(w, "memory plugin not configured", http.StatusServiceUnavailable)
		return
	}
	var payload memory.ValidationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.Memory.RecordValidation(r.Context(), payload); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
