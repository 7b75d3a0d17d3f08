// Package selection tracks the cursor over the visible clip list: the full
// history, or the current search results when a filter is active.
package selection

import (
	"slices"

	"github.com/yiblet/ammo/internal/search"
	"github.com/yiblet/ammo/internal/store"
)

const (
	// DefaultWindowLimit is the furthest the cursor moves before the list
	// rotates instead.
	DefaultWindowLimit = 11
	// DefaultMaxShortcuts is how many visible entries get a number key.
	DefaultMaxShortcuts = 9
)

// Controller holds cursor state. It never mutates clips; every method takes
// clips as values keyed by ID, so applying the same update twice is
// harmless.
type Controller struct {
	windowLimit  int
	maxShortcuts int

	clips map[string]store.Clip
	order []string

	searching bool
	results   []string

	pos int
}

// New creates an empty controller. Non-positive limits use the defaults.
func New(windowLimit, maxShortcuts int) *Controller {
	if windowLimit <= 0 {
		windowLimit = DefaultWindowLimit
	}
	if maxShortcuts <= 0 {
		maxShortcuts = DefaultMaxShortcuts
	}
	return &Controller{
		windowLimit:  windowLimit,
		maxShortcuts: maxShortcuts,
		clips:        make(map[string]store.Clip),
	}
}

// Replace swaps in a full history snapshot, most recent first.
func (c *Controller) Replace(clips []store.Clip) {
	c.clips = make(map[string]store.Clip, len(clips))
	c.order = c.order[:0]
	for _, clip := range clips {
		if _, dup := c.clips[clip.ID]; dup {
			continue
		}
		c.clips[clip.ID] = clip
		c.order = append(c.order, clip.ID)
	}
	c.results = c.known(c.results)
	c.clamp()
}

// Apply merges a newly inserted clip and drops the entries it displaced.
// A clip that is already present is left where it is.
func (c *Controller) Apply(clip store.Clip, evicted []string) {
	for _, id := range evicted {
		c.drop(id)
	}
	if _, ok := c.clips[clip.ID]; !ok {
		c.order = slices.Insert(c.order, 0, clip.ID)
	}
	c.clips[clip.ID] = clip
	c.clamp()
}

// Remove drops id from the history and from any active results. The cursor
// keeps its position, clamped to the shorter list.
func (c *Controller) Remove(id string) {
	c.drop(id)
	c.clamp()
}

// SetSearch switches the visible list to res. An inactive result clears the
// filter. The cursor is clamped, not reset.
func (c *Controller) SetSearch(res search.Result) {
	if !res.Active {
		c.ClearSearch()
		return
	}
	c.searching = true
	c.results = c.known(res.IDs)
	c.clamp()
}

// ClearSearch shows the full history again.
func (c *Controller) ClearSearch() {
	c.searching = false
	c.results = nil
	c.clamp()
}

// Searching reports whether a filter is active.
func (c *Controller) Searching() bool {
	return c.searching
}

// Up moves the cursor up. At the top the visible list rotates so its last
// entry comes to the front.
func (c *Controller) Up() {
	ids := c.visibleIDs()
	if len(ids) == 0 {
		return
	}
	if c.pos > 0 {
		c.pos--
		return
	}
	c.setVisible(append([]string{ids[len(ids)-1]}, ids[:len(ids)-1]...))
}

// Down moves the cursor down. At the window boundary the visible list
// rotates so its first entry goes to the end.
func (c *Controller) Down() {
	ids := c.visibleIDs()
	if len(ids) == 0 {
		return
	}
	if c.pos < c.boundary() {
		c.pos++
		return
	}
	c.setVisible(append(slices.Clone(ids[1:]), ids[0]))
}

// Position returns the cursor index into the visible list.
func (c *Controller) Position() int {
	return c.pos
}

// Selected returns the clip under the cursor.
func (c *Controller) Selected() (store.Clip, bool) {
	ids := c.visibleIDs()
	if len(ids) == 0 {
		return store.Clip{}, false
	}
	return c.clips[ids[c.pos]], true
}

// Visible returns the visible list in display order.
func (c *Controller) Visible() []store.Clip {
	ids := c.visibleIDs()
	out := make([]store.Clip, len(ids))
	for i, id := range ids {
		out[i] = c.clips[id]
	}
	return out
}

// History returns the full history in display order, ignoring any filter.
func (c *Controller) History() []store.Clip {
	out := make([]store.Clip, len(c.order))
	for i, id := range c.order {
		out[i] = c.clips[id]
	}
	return out
}

// Len returns the number of visible clips.
func (c *Controller) Len() int {
	return len(c.visibleIDs())
}

// Shortcut returns the number key for visible index i.
func (c *Controller) Shortcut(i int) (int, bool) {
	if i < 0 || i >= c.maxShortcuts || i >= c.Len() {
		return 0, false
	}
	return i + 1, true
}

// ByShortcut resolves number key n to a visible clip.
func (c *Controller) ByShortcut(n int) (store.Clip, bool) {
	if n < 1 || n > c.maxShortcuts {
		return store.Clip{}, false
	}
	ids := c.visibleIDs()
	if n > len(ids) {
		return store.Clip{}, false
	}
	return c.clips[ids[n-1]], true
}

// WindowLimit returns the configured window limit.
func (c *Controller) WindowLimit() int {
	return c.windowLimit
}

func (c *Controller) visibleIDs() []string {
	if c.searching {
		return c.results
	}
	return c.order
}

func (c *Controller) setVisible(ids []string) {
	if c.searching {
		c.results = ids
		return
	}
	c.order = ids
}

// boundary is the last index the cursor can reach without rotating.
func (c *Controller) boundary() int {
	last := len(c.visibleIDs()) - 1
	return max(min(last, c.windowLimit), 0)
}

func (c *Controller) clamp() {
	c.pos = max(min(c.pos, c.boundary()), 0)
}

func (c *Controller) drop(id string) {
	delete(c.clips, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
	c.results = slices.DeleteFunc(c.results, func(s string) bool { return s == id })
}

// known filters ids down to clips the controller holds.
func (c *Controller) known(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.clips[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
