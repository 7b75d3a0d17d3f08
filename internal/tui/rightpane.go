package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/ammo/internal/classify"
	"github.com/yiblet/ammo/internal/store"
)

// RightPaneMsg represents messages that the preview pane handles
type RightPaneMsg interface {
	isRightPaneMsg()
}

type ScrollUpMsg struct{}

func (ScrollUpMsg) isRightPaneMsg() {}

type ScrollDownMsg struct {
	MaxScroll int
}

func (ScrollDownMsg) isRightPaneMsg() {}

type ResizeRightPaneMsg struct {
	Width  int
	Height int
}

func (ResizeRightPaneMsg) isRightPaneMsg() {}

// ResetScrollMsg is sent when the previewed clip changes.
type ResetScrollMsg struct{}

func (ResetScrollMsg) isRightPaneMsg() {}

// RightPaneModel holds the state for the preview pane
type RightPaneModel struct {
	Width   int
	Height  int
	ViewPos int // first visible line
}

// NewRightPaneModel creates a new preview pane
func NewRightPaneModel(width, height int) RightPaneModel {
	return RightPaneModel{Width: width, Height: height}
}

// Update applies a pane message
func (r *RightPaneModel) Update(msg RightPaneMsg) {
	switch m := msg.(type) {
	case ScrollUpMsg:
		r.ViewPos = max(r.ViewPos-r.pageSize(), 0)
	case ScrollDownMsg:
		r.ViewPos = min(r.ViewPos+r.pageSize(), m.MaxScroll)
	case ResizeRightPaneMsg:
		r.Width = m.Width
		r.Height = m.Height
	case ResetScrollMsg:
		r.ViewPos = 0
	}
}

func (r *RightPaneModel) pageSize() int {
	return max(r.bodyHeight()/2, 1)
}

func (r *RightPaneModel) bodyHeight() int {
	return max(r.Height-2, 1)
}

func (r *RightPaneModel) bodyWidth() int {
	return max(r.Width-2, 1)
}

// previewLines returns the wrapped body for clip
func previewLines(clip store.Clip, width int) []string {
	if clip.Kind == store.KindImage {
		lines := []string{clip.Label}
		if data, err := classify.DecodeImage(clip.Contents); err == nil {
			lines = append(lines, "", fmt.Sprintf("PNG image, %d bytes", len(data)))
		}
		return lines
	}
	return WrapText(clip.Contents, width)
}

// MaxScroll returns the furthest ViewPos for clip
func (r *RightPaneModel) MaxScroll(clip *store.Clip) int {
	if clip == nil {
		return 0
	}
	lines := previewLines(*clip, r.bodyWidth())
	return max(len(lines)-r.bodyHeight(), 0)
}

// RightPaneView renders the selected clip
func RightPaneView(model RightPaneModel, clip *store.Clip) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Width(model.Width).
		Height(model.Height)

	var content strings.Builder
	if clip == nil {
		content.WriteString(lipgloss.NewStyle().Bold(true).Render("Preview") + "\n\n")
		content.WriteString("No clip selected")
		return style.Render(content.String())
	}

	lines := previewLines(*clip, model.bodyWidth())
	title := fmt.Sprintf("Preview [%s]", clip.Kind)
	if len(lines) > model.bodyHeight() {
		bottom := min(model.ViewPos+model.bodyHeight(), len(lines))
		title += fmt.Sprintf(" (%d-%d/%d)", model.ViewPos+1, bottom, len(lines))
	}
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n\n")

	end := min(model.ViewPos+model.bodyHeight(), len(lines))
	for i := model.ViewPos; i < end; i++ {
		content.WriteString(lines[i] + "\n")
	}

	return style.Render(strings.TrimSuffix(content.String(), "\n"))
}
