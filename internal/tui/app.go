// Package tui is the interactive clip picker. It talks to the engine only
// through engine.Channel, so it runs the same against a daemon or an
// in-process engine.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/ammo/internal/engine"
	"github.com/yiblet/ammo/internal/selection"
	"github.com/yiblet/ammo/internal/store"
)

const commandTimeout = 5 * time.Second

// Messages produced by commands
type (
	eventMsg struct {
		Event engine.Event
	}
	eventsClosedMsg struct{}
	deleteDoneMsg   struct {
		ID  string
		Err error
	}
	writeDoneMsg struct {
		ID  string
		Err error
	}
	flashExpiredMsg struct{}
)

// Options configures the picker.
type Options struct {
	WindowLimit  int
	MaxShortcuts int
}

// AppModel is the root bubbletea model
type AppModel struct {
	Width      int
	Height     int
	LeftWidth  int
	RightWidth int

	Search    SearchModel
	RightPane RightPaneModel
	Selection *selection.Controller

	channel     engine.Channel
	events      <-chan engine.Event
	unsubscribe func()

	// Written is the ID restored to the clipboard when the picker quit.
	Written string
	// Err is the last command failure, shown in the status line.
	Err error

	FlashMessage string
	FlashExpiry  time.Time
}

// NewAppModel creates a picker bound to channel. It subscribes immediately;
// the history arrives as the first event on that stream, ordered with every
// later change.
func NewAppModel(channel engine.Channel, opts Options) *AppModel {
	defaultWidth := 120
	defaultHeight := 20

	events, unsubscribe := channel.Subscribe()
	a := &AppModel{
		Width:       defaultWidth,
		Height:      defaultHeight,
		Search:      NewSearchModel(),
		RightPane:   NewRightPaneModel(defaultWidth, defaultHeight),
		Selection:   selection.New(opts.WindowLimit, opts.MaxShortcuts),
		channel:     channel,
		events:      events,
		unsubscribe: unsubscribe,
	}
	a.resize(defaultWidth, defaultHeight)
	return a
}

// Init starts listening for events
func (a *AppModel) Init() tea.Cmd {
	return tea.Batch(a.waitForEvent(), textinput.Blink)
}

// Close releases the event subscription
func (a *AppModel) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Update handles messages
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return a, nil
	case tea.KeyMsg:
		return a.handleKeyPress(m)
	case eventMsg:
		return a, tea.Batch(a.applyEvent(m.Event), a.waitForEvent())
	case eventsClosedMsg:
		a.events = nil
		return a, a.setFlashMessage("Lost connection to ammo", 5*time.Second)
	case searchResultMsg:
		if a.Search.Accept(m.Result) {
			a.Selection.SetSearch(m.Result)
			a.RightPane.Update(ResetScrollMsg{})
		}
		return a, nil
	case deleteDoneMsg:
		if m.Err != nil {
			return a, a.fail("delete", m.Err)
		}
		return a, nil
	case writeDoneMsg:
		if m.Err != nil {
			return a, a.fail("write", m.Err)
		}
		a.Written = m.ID
		return a, tea.Quit
	case flashExpiredMsg:
		if !time.Now().Before(a.FlashExpiry) {
			a.FlashMessage = ""
		}
		return a, nil
	}

	// Cursor blink and other textinput internals
	var cmd tea.Cmd
	a.Search.Input, cmd = a.Search.Input.Update(msg)
	return a, cmd
}

func (a *AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c", "esc":
		return a, tea.Quit
	case "up", "ctrl+p":
		a.Selection.Up()
		a.RightPane.Update(ResetScrollMsg{})
		return a, nil
	case "down", "ctrl+n":
		a.Selection.Down()
		a.RightPane.Update(ResetScrollMsg{})
		return a, nil
	case "enter":
		if clip, ok := a.Selection.Selected(); ok {
			return a, a.write(clip.ID)
		}
		return a, nil
	case "ctrl+d", "delete":
		if clip, ok := a.Selection.Selected(); ok {
			// Drop it locally right away; the engine's removal event is idempotent
			a.Selection.Remove(clip.ID)
			return a, a.delete(clip.ID)
		}
		return a, nil
	case "pgup", "ctrl+u":
		a.RightPane.Update(ScrollUpMsg{})
		return a, nil
	case "pgdown", "ctrl+f":
		a.RightPane.Update(ScrollDownMsg{MaxScroll: a.RightPane.MaxScroll(a.selected())})
		return a, nil
	}

	if n, ok := shortcutKey(key); ok {
		if clip, ok := a.Selection.ByShortcut(n); ok {
			return a, a.write(clip.ID)
		}
		return a, nil
	}

	return a, a.Search.Update(msg, a.Selection.History())
}

// shortcutKey parses alt+1 .. alt+9
func shortcutKey(key string) (int, bool) {
	digit, ok := strings.CutPrefix(key, "alt+")
	if !ok || len(digit) != 1 || digit[0] < '1' || digit[0] > '9' {
		return 0, false
	}
	return int(digit[0] - '0'), true
}

func (a *AppModel) applyEvent(ev engine.Event) tea.Cmd {
	switch ev := ev.(type) {
	case engine.EventRefresh:
		a.Selection.Replace(ev.Clips)
	case engine.EventNewClip:
		a.Selection.Apply(ev.Clip, ev.Evicted)
	case engine.EventRemoved:
		a.Selection.Remove(ev.ID)
		return nil
	case engine.EventYieldFocus:
		return nil
	}
	return a.rerunSearch()
}

// rerunSearch refreshes an active filter after the history changed
func (a *AppModel) rerunSearch() tea.Cmd {
	if strings.TrimSpace(a.Search.Query()) == "" {
		return nil
	}
	return a.Search.Rerun(a.Selection.History())
}

func (a *AppModel) selected() *store.Clip {
	if clip, ok := a.Selection.Selected(); ok {
		return &clip
	}
	return nil
}

func (a *AppModel) delete(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return deleteDoneMsg{ID: id, Err: a.channel.Delete(ctx, id)}
	}
}

func (a *AppModel) write(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return writeDoneMsg{ID: id, Err: a.channel.Write(ctx, id)}
	}
}

func (a *AppModel) waitForEvent() tea.Cmd {
	events := a.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{Event: ev}
	}
}

func (a *AppModel) fail(op string, err error) tea.Cmd {
	a.Err = err
	return a.setFlashMessage(fmt.Sprintf("Failed to %s: %v", op, err), 5*time.Second)
}

// setFlashMessage sets a status message that disappears after duration
func (a *AppModel) setFlashMessage(message string, duration time.Duration) tea.Cmd {
	a.FlashMessage = message
	a.FlashExpiry = time.Now().Add(duration)
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return flashExpiredMsg{}
	})
}

func (a *AppModel) resize(width, height int) {
	a.Width = max(width, 30)
	a.Height = max(height, 8)

	// Left pane takes a third, within sensible bounds
	a.LeftWidth = min(max(a.Width/3, 20), 60)
	a.RightWidth = max(a.Width-a.LeftWidth-4, 10)

	// Search line, status line and the pane borders
	paneHeight := max(a.Height-4, 3)
	a.RightPane.Update(ResizeRightPaneMsg{Width: a.RightWidth, Height: paneHeight})
}

// View renders the picker
func (a *AppModel) View() string {
	paneHeight := max(a.Height-4, 3)

	left := LeftPaneView(a.LeftWidth, paneHeight, a.Selection, a.Selection.Searching())
	right := RightPaneView(a.RightPane, a.selected())

	return lipgloss.JoinVertical(lipgloss.Left,
		SearchView(a.Search, a.Width),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		a.statusLine(),
	)
}

func (a *AppModel) statusLine() string {
	style := lipgloss.NewStyle().Width(a.Width)

	if a.FlashMessage != "" && time.Now().Before(a.FlashExpiry) {
		return style.Foreground(lipgloss.Color("10")).Render(a.FlashMessage)
	}

	return style.Faint(true).Render("↑/↓ move  enter paste  alt+1-9 pick  ctrl+d delete  esc quit")
}
