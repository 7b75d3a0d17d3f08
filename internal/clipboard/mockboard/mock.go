// Package mockboard provides a mock clipboard implementation for testing.
package mockboard

import (
	"sync"

	"github.com/yiblet/ammo/internal/clipboard"
)

// Write is one recorded call to MockClipboard.Write.
type Write struct {
	Format string
	Data   []byte
}

// MockClipboard implements clipboard.Clipboard for testing.
// It is safe for concurrent use so tests can change contents while a
// watcher polls it.
type MockClipboard struct {
	mu      sync.Mutex
	snap    clipboard.Snapshot
	readErr error
	reads   int
	writes  []Write
}

// New creates a new MockClipboard instance
func New() *MockClipboard {
	return &MockClipboard{}
}

// Read implements Clipboard.Read for MockClipboard
func (m *MockClipboard) Read() (clipboard.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.readErr != nil {
		return clipboard.Snapshot{}, m.readErr
	}
	return m.snap, nil
}

// Write implements Clipboard.Write for MockClipboard. Text writes also
// replace the snapshot, as a real clipboard would.
func (m *MockClipboard) Write(format string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = append(m.writes, Write{Format: format, Data: append([]byte(nil), data...)})
	switch format {
	case clipboard.FormatImage:
		m.snap = clipboard.Snapshot{Formats: []string{clipboard.FormatImage}, Image: data}
	case clipboard.FormatHTML:
		m.snap = clipboard.Snapshot{Formats: []string{clipboard.FormatText, clipboard.FormatHTML}, HTML: string(data)}
	default:
		m.snap = clipboard.Snapshot{Formats: []string{clipboard.FormatText}, Text: string(data)}
	}
	return nil
}

// IsSupported always returns true for the mock clipboard
func (m *MockClipboard) IsSupported() bool {
	return true
}

// SetText sets plain text contents directly (for testing)
func (m *MockClipboard) SetText(text string) {
	m.SetSnapshot(clipboard.Snapshot{Formats: []string{clipboard.FormatText}, Text: text})
}

// SetSnapshot sets the full clipboard state directly (for testing)
func (m *MockClipboard) SetSnapshot(snap clipboard.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
}

// FailReads makes Read return err until called again with nil
func (m *MockClipboard) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Reads returns how many times Read has been called
func (m *MockClipboard) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Writes returns a copy of every recorded Write call
func (m *MockClipboard) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}
