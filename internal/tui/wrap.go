package tui

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// WrapText wraps text to fit within maxWidth terminal cells, breaking on word
// boundaries when possible. Tabs are expanded to four spaces. Height
// truncation is left to the caller.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{}
	}

	var result []string
	text = strings.ReplaceAll(text, "\t", "    ")
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if runewidth.StringWidth(line) <= maxWidth {
			result = append(result, line)
			continue
		}
		result = append(result, wrapLine(line, maxWidth)...)
	}

	return result
}

// wrapLine wraps a single over-long line
func wrapLine(line string, maxWidth int) []string {
	var (
		result  []string
		current strings.Builder
		width   int
	)

	flush := func() {
		result = append(result, current.String())
		current.Reset()
		width = 0
	}

	for _, word := range strings.FieldsFunc(line, unicode.IsSpace) {
		wordWidth := runewidth.StringWidth(word)

		// Words wider than the pane are split by cell width
		if wordWidth > maxWidth {
			if width > 0 {
				flush()
			}
			for _, chunk := range breakWord(word, maxWidth) {
				result = append(result, chunk)
			}
			continue
		}

		needed := wordWidth
		if width > 0 {
			needed++
		}
		if width+needed > maxWidth {
			flush()
			needed = wordWidth
		}
		if width > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
		width += needed
	}

	if width > 0 {
		flush()
	}
	return result
}

func breakWord(word string, maxWidth int) []string {
	var (
		chunks []string
		chunk  strings.Builder
		width  int
	)
	for _, r := range word {
		w := runewidth.RuneWidth(r)
		if width+w > maxWidth && width > 0 {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
			width = 0
		}
		chunk.WriteRune(r)
		width += w
	}
	if width > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}
