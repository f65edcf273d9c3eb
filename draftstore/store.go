// Package draftstore persists in-progress statement drafts by session key.
// The fit controller treats it as an injected capability; the stored text is
// opaque and saved exactly as edited, narrow-space markers included.
package draftstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Load when no snapshot exists for a key.
var ErrNotFound = errors.New("draftstore: not found")

// Draft is the text of one statement slot.
type Draft struct {
	Slot string `json:"slot"`
	Text string `json:"text"`
}

// Snapshot is every draft of one session, in slot order.
type Snapshot struct {
	Key     string    `json:"key"`
	Drafts  []Draft   `json:"drafts"`
	SavedAt time.Time `json:"savedAt"`
}

// Text returns the draft text of slot and whether it was present.
func (s Snapshot) Text(slot string) (string, bool) {
	for _, d := range s.Drafts {
		if d.Slot == slot {
			return d.Text, true
		}
	}
	return "", false
}

// Store saves, loads and clears snapshots by session key.
// Save replaces any previous snapshot for the same key; saving a snapshot
// with no drafts leaves nothing to load.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, error)
	Clear(ctx context.Context, key string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
	now   func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]Snapshot), now: time.Now}
}

func (m *Memory) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = m.now()
	}
	snap.Drafts = append([]Draft(nil), snap.Drafts...)
	m.mu.Lock()
	if len(snap.Drafts) == 0 {
		delete(m.snaps, snap.Key)
	} else {
		m.snaps[snap.Key] = snap
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(ctx context.Context, key string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.RLock()
	snap, ok := m.snaps[key]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap.Drafts = append([]Draft(nil), snap.Drafts...)
	return snap, nil
}

func (m *Memory) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.snaps, key)
	m.mu.Unlock()
	return nil
}
