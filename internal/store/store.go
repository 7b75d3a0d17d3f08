// Package store defines the storage interfaces for ammo's persistence layer.
// It provides abstractions for both clip history and configuration storage.
package store

import "errors"

// ErrNotFound is returned by lookups for keys that do not exist.
var ErrNotFound = errors.New("not found")

// HistoryStore persists the ordered clip collection. Order is insertion
// order, most recent first; every mutation is durable before it returns.
type HistoryStore interface {
	// Insert removes every stored clip whose label equals clip.Label and
	// stores clip ahead of all others, as one atomic step.
	// Returns the IDs of the clips that were removed.
	Insert(clip Clip) ([]string, error)

	// List returns clips ordered most recent first.
	// If limit is 0, all clips are returned.
	List(limit int) ([]Clip, error)

	// Delete removes a clip by ID. Deleting an ID that is not stored is not
	// an error; the returned bool reports whether anything was removed.
	Delete(id string) (bool, error)

	// DeleteOldest removes the N least recent clips and returns their IDs.
	// If count exceeds the number of clips, all clips are deleted.
	DeleteOldest(count int) ([]string, error)

	// Count returns the total number of clips in the store.
	Count() (int, error)

	// Clear removes all clips from the store.
	Clear() error

	// Close releases any resources (DB connections, file handles, etc.).
	Close() error
}

// ConfigStore holds database metadata such as the schema version.
// Values are stored as key-value pairs.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns an error wrapping ErrNotFound if the key does not exist.
	Get(key string) (string, error)

	// Set stores a configuration value.
	// If the key already exists, its value is updated.
	Set(key, value string) error

	// Close releases any resources.
	Close() error
}

// Store combines both history and config stores.
// Implementations provide access to both stores and manage
// their lifecycle as a single unit.
type Store interface {
	// History returns the history store for managing clips.
	History() HistoryStore

	// Config returns the config store for managing settings.
	Config() ConfigStore

	// Close releases all resources for both stores.
	Close() error
}
