// Package memstore provides an in-memory implementation of the store interfaces.
// This implementation is designed for fast unit testing and does not persist data.
package memstore

import (
	"fmt"
	"sync"

	"github.com/yiblet/ammo/internal/store"
)

// MemoryStore is an in-memory implementation of store.Store.
// It is thread-safe via mutexes. Data is not persisted and exists only
// for the lifetime of the process.
type MemoryStore struct {
	history *memoryHistoryStore
	config  *memoryConfigStore
}

// NewMemoryStore creates a new in-memory store for testing.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history: newMemoryHistoryStore(),
		config:  newMemoryConfigStore(),
	}
}

// History returns the history store.
func (m *MemoryStore) History() store.HistoryStore {
	return m.history
}

// Config returns the config store.
func (m *MemoryStore) Config() store.ConfigStore {
	return m.config
}

// Close releases resources (no-op for memory store).
func (m *MemoryStore) Close() error {
	return nil
}

// FailWrites makes every subsequent history mutation return err without
// changing stored state. Pass nil to restore normal behaviour.
func (m *MemoryStore) FailWrites(err error) {
	m.history.mu.Lock()
	defer m.history.mu.Unlock()
	m.history.failErr = err
}

// memoryHistoryStore implements store.HistoryStore over a slice kept
// most recent first.
type memoryHistoryStore struct {
	mu      sync.RWMutex
	clips   []store.Clip
	failErr error
}

// newMemoryHistoryStore creates a new in-memory history store.
func newMemoryHistoryStore() *memoryHistoryStore {
	return &memoryHistoryStore{}
}

// Insert evicts same-label clips and prepends clip.
func (m *memoryHistoryStore) Insert(clip store.Clip) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return nil, fmt.Errorf("failed to create clip: %w", m.failErr)
	}

	var evicted []string
	kept := make([]store.Clip, 0, len(m.clips)+1)
	kept = append(kept, clip)
	for _, c := range m.clips {
		if c.Label == clip.Label {
			evicted = append(evicted, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	m.clips = kept

	return evicted, nil
}

// List returns clips most recent first.
func (m *memoryHistoryStore) List(limit int) ([]store.Clip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.clips)
	if limit > 0 && n > limit {
		n = limit
	}

	clips := make([]store.Clip, n)
	copy(clips, m.clips[:n])
	return clips, nil
}

// Delete removes a clip by ID.
func (m *memoryHistoryStore) Delete(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return false, fmt.Errorf("failed to delete clip: %w", m.failErr)
	}

	for i, c := range m.clips {
		if c.ID == id {
			m.clips = append(m.clips[:i:i], m.clips[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// DeleteOldest removes the N least recent clips.
func (m *memoryHistoryStore) DeleteOldest(count int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return nil, fmt.Errorf("failed to delete clips: %w", m.failErr)
	}
	if count <= 0 {
		return nil, nil
	}
	if count > len(m.clips) {
		count = len(m.clips)
	}

	cut := len(m.clips) - count
	ids := make([]string, 0, count)
	// Oldest first, matching the sqlite store
	for i := len(m.clips) - 1; i >= cut; i-- {
		ids = append(ids, m.clips[i].ID)
	}
	m.clips = m.clips[:cut:cut]

	return ids, nil
}

// Count returns the number of clips.
func (m *memoryHistoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clips), nil
}

// Clear removes all clips.
func (m *memoryHistoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return fmt.Errorf("failed to clear history: %w", m.failErr)
	}
	m.clips = nil
	return nil
}

// Close is a no-op.
func (m *memoryHistoryStore) Close() error {
	return nil
}

// memoryConfigStore implements store.ConfigStore using a map.
type memoryConfigStore struct {
	mu     sync.RWMutex
	config map[string]string
}

// newMemoryConfigStore creates a new in-memory config store.
func newMemoryConfigStore() *memoryConfigStore {
	return &memoryConfigStore{
		config: make(map[string]string),
	}
}

// Get retrieves a configuration value by key.
func (m *memoryConfigStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.config[key]
	if !exists {
		return "", fmt.Errorf("config key %s: %w", key, store.ErrNotFound)
	}
	return value, nil
}

// Set stores a configuration value.
func (m *memoryConfigStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config[key] = value
	return nil
}

// Close is a no-op.
func (m *memoryConfigStore) Close() error {
	return nil
}
