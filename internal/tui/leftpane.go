package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/ammo/internal/classify"
	"github.com/yiblet/ammo/internal/selection"
	"github.com/yiblet/ammo/internal/store"
)

// kindBadges mark non-text clips in the list.
var kindBadges = map[store.Kind]string{
	store.KindHTML:  "html",
	store.KindCode:  "code",
	store.KindImage: "img",
}

// LeftPaneView renders the visible clip list with shortcut numbers. Only
// rows that fit the pane height are drawn, scrolled to keep the cursor in view.
func LeftPaneView(width, height int, sel *selection.Controller, searching bool) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Width(width).
		Height(height)

	var content strings.Builder
	title := "History"
	if searching {
		title = "Matches"
	}
	visible := sel.Visible()
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s (%d)", title, len(visible))) + "\n\n")

	if len(visible) == 0 {
		empty := "Nothing copied yet"
		if searching {
			empty = "No matches"
		}
		content.WriteString(lipgloss.NewStyle().Faint(true).Render(empty))
		return style.Render(content.String())
	}

	rows := max(height-2, 1)
	innerWidth := max(width-2, 8)
	pos := sel.Position()
	// Scroll just far enough to keep the cursor row drawn
	start := max(pos-rows+1, 0)
	end := min(start+rows, len(visible))
	for i := start; i < end; i++ {
		content.WriteString(renderRow(visible[i], i, i == pos, sel, innerWidth) + "\n")
	}

	return style.Render(strings.TrimSuffix(content.String(), "\n"))
}

func renderRow(clip store.Clip, index int, selected bool, sel *selection.Controller, width int) string {
	prefix := "   "
	if n, ok := sel.Shortcut(index); ok {
		prefix = fmt.Sprintf("%d. ", n)
	}

	suffix := ""
	if badge, ok := kindBadges[clip.Kind]; ok {
		suffix = " [" + badge + "]"
	}

	available := max(width-len(prefix)-len(suffix), 3)
	line := prefix + classify.Preview(clip, available) + suffix

	if selected {
		return lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Width(width).
			Render(line)
	}
	return line
}
