package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parleychat/parley/pkg/chat"
	"github.com/parleychat/parley/pkg/logger"
)

// Snapshot is the projection of chat state mirrored to durable storage
// after every chat mutation.
type Snapshot struct {
	Sessions         []chat.Session `json:"sessions"`
	CurrentSessionID string         `json:"current_session_id,omitempty"`
	CurrentModel     string         `json:"current_model,omitempty"`
	LastSync         time.Time      `json:"last_sync_timestamp"`
}

// Persister mirrors store state to a single JSON file. Writes never fail
// the triggering mutation; errors are logged and swallowed.
type Persister struct {
	store    *Store
	filePath string
}

func NewPersister(store *Store, filePath string) (*Persister, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &Persister{store: store, filePath: filePath}, nil
}

// Attach subscribes the persister to store mutations. Generation-flag
// flips are transient and skipped.
func (p *Persister) Attach() {
	p.store.Subscribe(func(evt Event) {
		if !evt.Type.persistent() {
			return
		}
		if err := p.Save(); err != nil {
			logger.Error("snapshot write failed: %v", err)
		}
	})
}

// Save writes the current projection.
func (p *Persister) Save() error {
	snap := Snapshot{
		Sessions:         p.store.Sessions(),
		CurrentSessionID: p.store.CurrentSessionID(),
		CurrentModel:     p.store.CurrentModel(),
		LastSync:         time.Now(),
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(p.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return nil
}

// Load seeds the store from the snapshot file. A missing or corrupt file
// leaves the store empty; startup never fails on it.
func (p *Persister) Load() {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("snapshot unreadable, starting empty: %v", err)
		}
		return
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("snapshot corrupt, starting empty: %v", err)
		return
	}

	p.store.LoadSessions(snap.Sessions)
	if snap.CurrentModel != "" {
		p.store.SetCurrentModel(snap.CurrentModel)
	}
	if snap.CurrentSessionID != "" {
		if err := p.store.SelectSession(snap.CurrentSessionID); err != nil {
			logger.Warn("snapshot current session missing: %v", err)
		}
	}
}
