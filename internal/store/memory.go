package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/inboxpilot/inboxpilot/pkg/models"
	"github.com/rs/zerolog/log"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	NextID  int                 `json:"next_id"`
	Records []models.TaskRecord `json:"records"`
}

// MemoryStore implements Store with an in-memory slice. Appends are
// snapshotted to disk synchronously when a snapshot path is configured,
// matching the append-to-file semantics of the history contract.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.TaskRecord
	nextID  int

	snapshotPath string // empty = no persistence
}

// NewMemoryStore creates an in-memory history store. If dataDir is
// non-empty, history is persisted to history.json in that directory and
// reloaded on startup.
func NewMemoryStore(dataDir string) *MemoryStore {
	m := &MemoryStore{}
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
		} else {
			m.snapshotPath = filepath.Join(dataDir, "history.json")
			m.load()
		}
	}
	return m
}

// AppendTask stores the record with the next monotonic id.
func (m *MemoryStore) AppendTask(_ context.Context, record *models.TaskRecord) (int, error) {
	if record == nil {
		return 0, fmt.Errorf("store: nil task record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, *record)

	m.saveLocked()
	return record.ID, nil
}

// ListTasks returns a copy of all records in append order.
func (m *MemoryStore) ListTasks(context.Context) ([]models.TaskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.TaskRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

// GetTask returns one record by id.
func (m *MemoryStore) GetTask(_ context.Context, id int) (*models.TaskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.records {
		if m.records[i].ID == id {
			record := m.records[i]
			return &record, nil
		}
	}
	return nil, fmt.Errorf("store: task %d not found", id)
}

// ResetTasks clears the history. Ids restart deterministically from 0.
func (m *MemoryStore) ResetTasks(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.nextID = 0
	m.saveLocked()
	return nil
}

// ExportTasks writes the history as indented JSON to the given path.
func (m *MemoryStore) ExportTasks(_ context.Context, path string) error {
	m.mu.RLock()
	records := make([]models.TaskRecord, len(m.records))
	copy(records, m.records)
	m.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: write history export: %w", err)
	}
	return nil
}

// Close flushes the snapshot.
func (m *MemoryStore) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.saveLocked()
	return nil
}

// saveLocked persists the snapshot. Callers hold m.mu.
func (m *MemoryStore) saveLocked() {
	if m.snapshotPath == "" {
		return
	}
	snap := snapshot{NextID: m.nextID, Records: m.records}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Cannot encode history snapshot")
		return
	}
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", tmp).Msg("Cannot write history snapshot")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Cannot replace history snapshot")
	}
}

// load restores a previous snapshot if one exists.
func (m *MemoryStore) load() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Cannot read history snapshot")
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Corrupt history snapshot, starting fresh")
		return
	}
	m.records = snap.Records
	m.nextID = snap.NextID
	log.Info().Int("records", len(m.records)).Msg("Task history restored from snapshot")
}
