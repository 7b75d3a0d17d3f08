package engine

import "github.com/yiblet/ammo/internal/store"

// Event is a notification pushed to subscribers.
type Event interface {
	isEvent()
}

// EventRefresh carries a full history snapshot.
type EventRefresh struct {
	Clips []store.Clip
}

// EventNewClip reports a clip inserted at the front of the history, along
// with the IDs it displaced.
type EventNewClip struct {
	Clip    store.Clip
	Evicted []string
}

// EventRemoved reports an explicit delete.
type EventRemoved struct {
	ID string
}

// EventYieldFocus asks the client to step aside after a clip was written
// to the native clipboard.
type EventYieldFocus struct {
	ID string
}

func (EventRefresh) isEvent()    {}
func (EventNewClip) isEvent()    {}
func (EventRemoved) isEvent()    {}
func (EventYieldFocus) isEvent() {}
