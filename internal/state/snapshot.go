package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// StateSnapshot is a point-in-time capture of AppState and every known
// SessionState, written to disk so a crashed process can recover what it
// knew about in-flight runs.
type StateSnapshot struct {
	SnapshotID string                  `json:"snapshot_id"`
	Timestamp  time.Time               `json:"timestamp"`
	AppState   AppState                `json:"app_state"`
	Sessions   map[string]SessionState `json:"sessions"`
	Version    string                  `json:"version"`
}

const snapshotVersion = "1.0.0"

// NewStateSnapshot captures app and sessions under a fresh snapshot ID.
func NewStateSnapshot(app AppState, sessions map[string]SessionState) StateSnapshot {
	return StateSnapshot{
		SnapshotID: uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		AppState:   app,
		Sessions:   sessions,
		Version:    snapshotVersion,
	}
}

// SnapshotManager persists StateSnapshots to a directory and prunes old
// ones beyond MaxSnapshots, oldest first.
type SnapshotManager struct {
	dir          string
	maxSnapshots int
}

// NewSnapshotManager creates the snapshot directory if needed and returns a
// manager that retains at most maxSnapshots files (minimum 1).
func NewSnapshotManager(dir string, maxSnapshots int) (*SnapshotManager, error) {
	if maxSnapshots < 1 {
		maxSnapshots = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("state: create snapshot dir: %w", err)
	}
	return &SnapshotManager{dir: dir, maxSnapshots: maxSnapshots}, nil
}

func (m *SnapshotManager) path(snapshotID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("snapshot_%s.json", snapshotID))
}

// Save writes snapshot to disk via a temp file plus atomic rename, then
// prunes old snapshots beyond the configured retention.
func (m *SnapshotManager) Save(snapshot StateSnapshot) (string, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("state: marshal snapshot: %w", err)
	}

	dest := m.path(snapshot.SnapshotID)
	tmp, err := os.CreateTemp(m.dir, "snapshot_*.json.tmp")
	if err != nil {
		return "", fmt.Errorf("state: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("state: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("state: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("state: rename temp snapshot: %w", err)
	}

	if err := m.cleanupOldSnapshots(); err != nil {
		return dest, err
	}
	return dest, nil
}

// LoadLatest returns the most recently modified snapshot, or false if none
// exist.
func (m *SnapshotManager) LoadLatest() (StateSnapshot, bool, error) {
	paths, err := m.listSnapshots()
	if err != nil {
		return StateSnapshot{}, false, err
	}
	if len(paths) == 0 {
		return StateSnapshot{}, false, nil
	}
	snapshot, err := loadSnapshotFile(paths[0])
	if err != nil {
		return StateSnapshot{}, false, err
	}
	return snapshot, true, nil
}

// LoadByID returns the snapshot with the given ID.
func (m *SnapshotManager) LoadByID(snapshotID string) (StateSnapshot, error) {
	return loadSnapshotFile(m.path(snapshotID))
}

func loadSnapshotFile(path string) (StateSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StateSnapshot{}, fmt.Errorf("state: read snapshot %s: %w", path, err)
	}
	var snapshot StateSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return StateSnapshot{}, fmt.Errorf("state: decode snapshot %s: %w", path, err)
	}
	return snapshot, nil
}

// listSnapshots returns snapshot file paths sorted newest-first by mtime.
func (m *SnapshotManager) listSnapshots() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("state: list snapshot dir: %w", err)
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		if len(name) < len("snapshot_") || name[:len("snapshot_")] != "snapshot_" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: filepath.Join(m.dir, name), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

func (m *SnapshotManager) cleanupOldSnapshots() error {
	paths, err := m.listSnapshots()
	if err != nil {
		return err
	}
	if len(paths) <= m.maxSnapshots {
		return nil
	}
	for _, path := range paths[m.maxSnapshots:] {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("state: remove old snapshot %s: %w", path, err)
		}
	}
	return nil
}

// Clear deletes every stored snapshot and returns the count removed.
func (m *SnapshotManager) Clear() (int, error) {
	paths, err := m.listSnapshots()
	if err != nil {
		return 0, err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("state: remove snapshot %s: %w", path, err)
		}
	}
	return len(paths), nil
}
