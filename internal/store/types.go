package store

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies what a clip holds. It is fixed when the clip is created.
type Kind string

const (
	KindText  Kind = "text"
	KindHTML  Kind = "html"
	KindCode  Kind = "code"
	KindImage Kind = "image"
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindHTML, KindCode, KindImage:
		return true
	}
	return false
}

// Clip is one recorded clipboard capture. Clips are immutable values:
// once created, none of their fields change.
type Clip struct {
	// ID is an opaque unique identifier. It is never reused, even after
	// the clip has been deleted.
	ID string `json:"id"`

	// Label is a short human-readable summary. For text it is the raw text,
	// for images a synthetic filename. It is the deduplication key: no two
	// live clips share a label.
	Label string `json:"label"`

	// Contents is the full payload: plain text, HTML markup, source text,
	// or a base64 data string for images.
	Contents string `json:"contents"`

	// Kind is one of text, html, code or image.
	Kind Kind `json:"type"`

	// CreatedAt is the capture time.
	CreatedAt time.Time `json:"created_at"`
}

// NewClip creates a clip with a freshly generated ID.
func NewClip(label, contents string, kind Kind) Clip {
	return Clip{
		ID:        uuid.NewString(),
		Label:     label,
		Contents:  contents,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}
