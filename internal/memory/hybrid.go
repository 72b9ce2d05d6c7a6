package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ConflictPolicy names which side wins when local and remote both hold
// an updated copy of the same QA item; resolveConflict maps it to a
// winner. The sync pass does not call resolveConflict.
type ConflictPolicy int

const (
	ConflictLocalWins ConflictPolicy = iota
	ConflictRemoteWins
	ConflictNewestWins
)

// HybridConfig configures HybridPlugin.
type HybridConfig struct {
	Local          LocalConfig
	RemoteBaseURL  string
	RemoteAPIKey   string
	RemoteTimeout  time.Duration
	SyncInterval   time.Duration
	ConflictPolicy ConflictPolicy
}

// SyncStatus summarizes the hybrid plugin's last sync attempt.
type SyncStatus struct {
	LastSyncAt   time.Time
	LastError    string
	PendingCount int
}

// HybridPlugin serves Search and the Record* calls from its embedded
// LocalPlugin and, when a remote is configured, runs a background sync
// loop against a RemotePlugin. Each sync pass is a remote health check
// only: local rows are not uploaded, remote changes are not downloaded,
// and resolveConflict is not called. TaskGrade is the one call that
// goes to the remote synchronously.
type HybridPlugin struct {
	local  *LocalPlugin
	remote *RemotePlugin
	policy ConflictPolicy
	logger *slog.Logger

	mu     sync.Mutex
	status SyncStatus

	syncNow chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// NewHybridPlugin wires a LocalPlugin and, if cfg.RemoteBaseURL is
// set, a RemotePlugin health-checked every cfg.SyncInterval (default 5m).
// The background sync loop is started immediately and stops when ctx
// is cancelled or Close is called.
func NewHybridPlugin(ctx context.Context, cfg HybridConfig, local *LocalPlugin, logger *slog.Logger) *HybridPlugin {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HybridPlugin{
		local:   local,
		policy:  cfg.ConflictPolicy,
		logger:  logger,
		syncNow: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cfg.RemoteBaseURL != "" {
		h.remote = NewRemotePlugin(RemoteConfig{
			BaseURL: cfg.RemoteBaseURL,
			APIKey:  cfg.RemoteAPIKey,
			Timeout: cfg.RemoteTimeout,
		})
		interval := cfg.SyncInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go h.runSync(ctx, interval)
		h.TriggerSync()
	} else {
		close(h.done)
	}
	return h
}

// Name identifies this provider for logging/diagnostics.
func (h *HybridPlugin) Name() string { return "hybrid" }

// Search always reads from the local store; the sync loop does not
// bring remote items into it.
func (h *HybridPlugin) Search(ctx context.Context, payload SearchPayload) ([]SearchMatch, error) {
	return h.local.Search(ctx, payload)
}

// RecordHit writes to the local store only; the sync loop does not
// forward it to remote.
func (h *HybridPlugin) RecordHit(ctx context.Context, payload HitsPayload) error {
	return h.local.RecordHit(ctx, payload)
}

// RecordCandidate writes to the local store only; the sync loop does
// not forward it to remote.
func (h *HybridPlugin) RecordCandidate(ctx context.Context, payload CandidatePayload) error {
	return h.local.RecordCandidate(ctx, payload)
}

// RecordValidation writes to the local store only; the sync loop does
// not forward it to remote.
func (h *HybridPlugin) RecordValidation(ctx context.Context, payload ValidationPayload) error {
	return h.local.RecordValidation(ctx, payload)
}

// TaskGrade defers to remote when configured (grading needs a central
// classifier); falls back to the local stub otherwise.
func (h *HybridPlugin) TaskGrade(ctx context.Context, prompt string) (TaskGradeResult, error) {
	if h.remote != nil {
		if result, err := h.remote.TaskGrade(ctx, prompt); err == nil {
			return result, nil
		}
	}
	return h.local.TaskGrade(ctx, prompt)
}

// TriggerSync requests an out-of-band sync pass without waiting for
// the next interval tick. Non-blocking: a pass already queued is not
// duplicated.
func (h *HybridPlugin) TriggerSync() {
	select {
	case h.syncNow <- struct{}{}:
	default:
	}
}

// Status returns the most recent sync outcome.
func (h *HybridPlugin) Status() SyncStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Close stops the background sync loop and waits for it to exit.
func (h *HybridPlugin) Close() error {
	select {
	case <-h.done:
		return nil
	default:
	}
	close(h.stop)
	<-h.done
	return nil
}

func (h *HybridPlugin) runSync(ctx context.Context, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-ticker.C:
			h.sync(ctx)
		case <-h.syncNow:
			h.sync(ctx)
		}
	}
}

// sync performs one best-effort health check against the remote
// service and records the outcome in Status. It transfers no items.
func (h *HybridPlugin) sync(ctx context.Context) {
	if h.remote == nil {
		return
	}
	syncCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := h.remote.HealthCheck(syncCtx)

	h.mu.Lock()
	h.status.LastSyncAt = time.Now().UTC()
	if err != nil {
		h.status.LastError = err.Error()
	} else {
		h.status.LastError = ""
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("memory sync failed", "error", err)
	}
}

// resolveConflict picks which of two updated_at timestamps wins under
// the configured ConflictPolicy.
func (h *HybridPlugin) resolveConflict(localNewer bool) bool {
	switch h.policy {
	case ConflictLocalWins:
		return true
	case ConflictRemoteWins:
		return false
	default: // ConflictNewestWins
		return localNewer
	}
}
