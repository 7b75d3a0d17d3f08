package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/ammo/internal/search"
	"github.com/yiblet/ammo/internal/store"
)

// searchResultMsg delivers a finished fuzzy search.
type searchResultMsg struct {
	Result search.Result
}

// SearchModel holds the query field and the searcher that keeps only the
// newest result.
type SearchModel struct {
	Input    textinput.Model
	searcher *search.Searcher
}

// NewSearchModel creates a focused, empty search field
func NewSearchModel() SearchModel {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "type to search"
	input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	input.Focus()

	return SearchModel{
		Input:    input,
		searcher: search.NewSearcher(),
	}
}

// Query returns the current input.
func (s *SearchModel) Query() string {
	return s.Input.Value()
}

// Update feeds a key to the text field. If the query changed, the returned
// command runs a search over clips.
func (s *SearchModel) Update(msg tea.Msg, clips []store.Clip) tea.Cmd {
	before := s.Input.Value()

	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)

	if s.Input.Value() == before {
		return cmd
	}
	return tea.Batch(cmd, s.Rerun(clips))
}

// Rerun searches clips again with the current query, superseding any
// search still running.
func (s *SearchModel) Rerun(clips []store.Clip) tea.Cmd {
	req := s.searcher.Start(s.Input.Value(), clips)
	return func() tea.Msg {
		return searchResultMsg{Result: search.Run(req)}
	}
}

// Accept reports whether res is the newest search result.
func (s *SearchModel) Accept(res search.Result) bool {
	return s.searcher.Accept(res)
}

// SearchView renders the query field.
func SearchView(model SearchModel, width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Render(model.Input.View())
}
