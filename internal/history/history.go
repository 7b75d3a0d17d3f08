// Package history keeps the ordered, deduplicated clip collection in memory
// and mirrors every mutation to a store.HistoryStore.
package history

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/yiblet/ammo/internal/store"
)

// DefaultLimit is the number of clips kept when no limit is configured.
const DefaultLimit = 255

// ClipStore is the single owner of history mutation. Entries are kept most
// recent first and no two entries share a label.
type ClipStore struct {
	mu    sync.RWMutex
	db    store.HistoryStore
	clips []store.Clip
	limit int
}

// New loads the persisted history and returns a ClipStore over it.
// A limit <= 0 uses DefaultLimit.
func New(db store.HistoryStore, limit int) (*ClipStore, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	cs := &ClipStore{db: db, limit: limit}
	if err := cs.Reload(); err != nil {
		return nil, err
	}
	return cs, nil
}

// Reload replaces the in-memory collection with the persisted one.
func (cs *ClipStore) Reload() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.reloadLocked()
}

func (cs *ClipStore) reloadLocked() error {
	clips, err := cs.db.List(0)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	cs.clips = clips
	return nil
}

// Insert removes any entry with the same label, places clip at the front and
// trims the history to its limit. The IDs of every displaced entry are
// returned. Nothing changes in memory unless the store accepted the insert.
func (cs *ClipStore) Insert(clip store.Clip) ([]string, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	evicted, err := cs.db.Insert(clip)
	if err != nil {
		cs.recover()
		return nil, fmt.Errorf("failed to insert clip: %w", err)
	}

	cs.clips = slices.DeleteFunc(cs.clips, func(c store.Clip) bool {
		return c.Label == clip.Label || c.ID == clip.ID
	})
	cs.clips = slices.Insert(cs.clips, 0, clip)

	if over := len(cs.clips) - cs.limit; over > 0 {
		trimmed, err := cs.db.DeleteOldest(over)
		if err != nil {
			cs.recover()
			return nil, fmt.Errorf("failed to trim history: %w", err)
		}
		cs.clips = cs.clips[:len(cs.clips)-len(trimmed)]
		evicted = append(evicted, trimmed...)
	}

	return evicted, nil
}

// Remove deletes the clip with id. Removing an absent id is a no-op.
func (cs *ClipStore) Remove(id string) (bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	idx := cs.indexLocked(id)
	if idx < 0 {
		return false, nil
	}

	if _, err := cs.db.Delete(id); err != nil {
		cs.recover()
		return false, fmt.Errorf("failed to delete clip: %w", err)
	}

	cs.clips = slices.Delete(cs.clips, idx, idx+1)
	return true, nil
}

// Clear removes every clip.
func (cs *ClipStore) Clear() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.db.Clear(); err != nil {
		cs.recover()
		return fmt.Errorf("failed to clear history: %w", err)
	}
	cs.clips = nil
	return nil
}

// List returns a copy of the history, most recent first.
func (cs *ClipStore) List() []store.Clip {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return slices.Clone(cs.clips)
}

// Get looks up a clip by id.
func (cs *ClipStore) Get(id string) (store.Clip, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if idx := cs.indexLocked(id); idx >= 0 {
		return cs.clips[idx], true
	}
	return store.Clip{}, false
}

// Len returns the number of clips.
func (cs *ClipStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.clips)
}

// Limit returns the maximum number of clips kept.
func (cs *ClipStore) Limit() int {
	return cs.limit
}

func (cs *ClipStore) indexLocked(id string) int {
	return slices.IndexFunc(cs.clips, func(c store.Clip) bool {
		return c.ID == id
	})
}

// recover resyncs memory with the store after a failed write so the two
// never drift apart.
func (cs *ClipStore) recover() {
	if err := cs.reloadLocked(); err != nil {
		slog.Error("history reload after failed write", "err", err)
	}
}
