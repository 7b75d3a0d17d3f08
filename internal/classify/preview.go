package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yiblet/ammo/internal/store"
)

// Preview creates a single-line display string for a clip, at most maxLen
// runes long. It never changes the clip's label.
func Preview(clip store.Clip, maxLen int) string {
	if clip.Kind == store.KindImage {
		return Truncate(clip.Label, maxLen)
	}

	// Use the first non-empty line
	for _, line := range strings.Split(clip.Label, "\n") {
		if cleaned := Sanitize(line); cleaned != "" {
			return Truncate(cleaned, maxLen)
		}
	}

	return "[empty]"
}

// Truncate ensures s is at most maxLen runes.
// If truncation is needed, appends "..." to indicate truncation.
func Truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	// Reserve 3 characters for "..."
	if maxLen < 3 {
		return strings.Repeat(".", max(maxLen, 0))
	}

	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

// Sanitize removes control characters and collapses whitespace.
// This ensures previews are safe for display in terminals.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)

	return strings.Join(strings.Fields(s), " ")
}
