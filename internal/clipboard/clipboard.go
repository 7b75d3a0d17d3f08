// Package clipboard describes the native clipboard capability ammo depends on:
// reading the current contents together with the formats on offer, and writing
// back contents of a given format.
package clipboard

import (
	"context"
	"slices"
)

// Format names as advertised by native clipboards.
const (
	FormatText  = "text/plain"
	FormatHTML  = "text/html"
	FormatImage = "image/png"

	// FormatCode is offered by source editors (VS Code and derivatives)
	// alongside the plain text of a copied selection.
	FormatCode = "vscode-editor-data"
)

// Snapshot is the clipboard state sampled at one instant.
type Snapshot struct {
	Formats []string // Formats currently on offer
	Text    string   // Plain text payload, empty if none
	HTML    string   // HTML payload, empty if none
	Image   []byte   // PNG payload, nil if none
}

// Has reports whether format is among the snapshot's formats.
func (s Snapshot) Has(format string) bool {
	return slices.Contains(s.Formats, format)
}

// Clipboard is the native read/write primitive.
type Clipboard interface {
	// Read samples the current clipboard contents.
	Read() (Snapshot, error)

	// Write replaces the clipboard contents with data in the given format.
	Write(format string, data []byte) error

	// IsSupported reports whether the clipboard can be used on this system.
	IsSupported() bool
}

// Holder is implemented by clipboards whose written contents only survive
// while the writing process is alive.
type Holder interface {
	Hold(ctx context.Context)
}
