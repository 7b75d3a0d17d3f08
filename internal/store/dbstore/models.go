package dbstore

import (
	"time"

	"github.com/yiblet/ammo/internal/store"
)

// ClipModel represents a clip row in the database.
// Seq orders the history: the row with the highest Seq is the most recent.
type ClipModel struct {
	ID        string    `gorm:"primaryKey;size:36"`         // UUID assigned by store.NewClip
	Seq       int64     `gorm:"not null;uniqueIndex"`       // Insertion sequence for ordering
	Label     string    `gorm:"type:text;not null;index"`   // Dedup key
	Contents  string    `gorm:"type:text;not null"`         // Full payload
	Kind      string    `gorm:"size:16;not null"`           // text, html, code or image
	CreatedAt time.Time `gorm:"not null"`                   // Capture time
}

// TableName returns the table name for ClipModel
func (ClipModel) TableName() string {
	return "clips"
}

// ToClip converts the GORM model to a store.Clip
func (m *ClipModel) ToClip() store.Clip {
	return store.Clip{
		ID:        m.ID,
		Label:     m.Label,
		Contents:  m.Contents,
		Kind:      store.Kind(m.Kind),
		CreatedAt: m.CreatedAt,
	}
}

// newClipModel builds a row for clip at the given sequence position.
func newClipModel(clip store.Clip, seq int64) *ClipModel {
	return &ClipModel{
		ID:        clip.ID,
		Seq:       seq,
		Label:     clip.Label,
		Contents:  clip.Contents,
		Kind:      string(clip.Kind),
		CreatedAt: clip.CreatedAt,
	}
}

// ConfigItemModel represents a configuration key-value pair
type ConfigItemModel struct {
	Key       string    `gorm:"primaryKey;size:100"`
	Value     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for ConfigItemModel
func (ConfigItemModel) TableName() string {
	return "config"
}
