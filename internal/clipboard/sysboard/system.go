// Package sysboard implements the system clipboard on top of
// golang.design/x/clipboard. Formats beyond text and PNG (HTML, editor
// metadata) are probed on Linux with xclip, which exposes the full target list.
package sysboard

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"golang.design/x/clipboard"

	cb "github.com/yiblet/ammo/internal/clipboard"
)

// SystemClipboard implements Clipboard using the native clipboard
type SystemClipboard struct {
	once    sync.Once
	initErr error

	mu      sync.Mutex
	changed <-chan struct{}
}

// New creates a new SystemClipboard instance. The native clipboard is
// initialised lazily on first use.
func New() *SystemClipboard {
	return &SystemClipboard{}
}

func (s *SystemClipboard) init() error {
	s.once.Do(func() {
		s.initErr = clipboard.Init()
	})
	return s.initErr
}

// IsSupported returns true if clipboard operations are supported on this system
func (s *SystemClipboard) IsSupported() bool {
	return s.init() == nil
}

// Read implements Clipboard.Read for SystemClipboard
func (s *SystemClipboard) Read() (cb.Snapshot, error) {
	if err := s.init(); err != nil {
		return cb.Snapshot{}, fmt.Errorf("failed to init clipboard: %w", err)
	}

	var snap cb.Snapshot
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		snap.Text = string(text)
		snap.Formats = append(snap.Formats, cb.FormatText)
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		snap.Image = img
		snap.Formats = append(snap.Formats, cb.FormatImage)
	}

	// Extra targets are best effort: a missing xclip leaves text and image intact
	for _, target := range listTargets() {
		switch target {
		case cb.FormatHTML:
			html, err := readTarget(cb.FormatHTML)
			if err != nil || len(html) == 0 {
				continue
			}
			snap.HTML = string(html)
			snap.Formats = append(snap.Formats, cb.FormatHTML)
		case cb.FormatCode:
			snap.Formats = append(snap.Formats, cb.FormatCode)
		}
	}

	return snap, nil
}

// Write implements Clipboard.Write for SystemClipboard
func (s *SystemClipboard) Write(format string, data []byte) error {
	if err := s.init(); err != nil {
		return fmt.Errorf("failed to init clipboard: %w", err)
	}

	var changed <-chan struct{}
	switch format {
	case cb.FormatImage:
		changed = clipboard.Write(clipboard.FmtImage, data)
	case cb.FormatHTML:
		if runtime.GOOS == "linux" {
			// xclip forks and keeps serving the selection itself
			if err := writeWithCommand(data, "xclip", "-selection", "clipboard", "-t", cb.FormatHTML); err == nil {
				s.setChanged(nil)
				return nil
			}
		}
		// Fall back to plain text so the restore still lands somewhere useful
		changed = clipboard.Write(clipboard.FmtText, data)
	case cb.FormatText:
		changed = clipboard.Write(clipboard.FmtText, data)
	default:
		return fmt.Errorf("unsupported clipboard format: %s", format)
	}
	s.setChanged(changed)
	return nil
}

func (s *SystemClipboard) setChanged(ch <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = ch
}

// Hold blocks until something else replaces the contents of the last Write
// or ctx is done. On X11 the selection dies with the writing process, so a
// short-lived process calls Hold before exiting.
func (s *SystemClipboard) Hold(ctx context.Context) {
	s.mu.Lock()
	changed := s.changed
	s.mu.Unlock()

	if changed == nil {
		return
	}
	select {
	case <-changed:
	case <-ctx.Done():
	}
}

// listTargets returns the clipboard's advertised targets, or nil where
// they cannot be enumerated.
func listTargets() []string {
	if runtime.GOOS != "linux" {
		return nil
	}
	out, err := readWithCommand("xclip", "-selection", "clipboard", "-t", "TARGETS", "-o")
	if err != nil {
		return nil
	}
	return strings.Fields(string(out))
}

// readTarget reads the clipboard contents for one target
func readTarget(target string) ([]byte, error) {
	return readWithCommand("xclip", "-selection", "clipboard", "-t", target, "-o")
}

// readWithCommand executes a command and returns its output
func readWithCommand(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// writeWithCommand executes a command with data as stdin
func writeWithCommand(data []byte, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = bytes.NewReader(data)

	return cmd.Run()
}
