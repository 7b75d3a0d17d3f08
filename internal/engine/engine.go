// Package engine runs history, watcher and clipboard writes as one
// sequential actor. Every mutation goes through a single queue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yiblet/ammo/internal/classify"
	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/history"
	"github.com/yiblet/ammo/internal/store"
	"github.com/yiblet/ammo/internal/watcher"
)

// ErrStopped is returned by commands issued after the engine stopped.
var ErrStopped = errors.New("engine stopped")

const (
	queueSize      = 64
	subscriberSize = 32
)

// Channel is the command and notification surface a client talks to.
type Channel interface {
	// Refresh returns the full history, most recent first.
	Refresh(ctx context.Context) ([]store.Clip, error)
	// Delete removes a clip. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error
	// Write puts a clip back on the native clipboard. Unknown IDs are ignored.
	Write(ctx context.Context, id string) error
	// Subscribe returns a stream of events and a function that ends it.
	Subscribe() (<-chan Event, func())
}

// Clearer is implemented by channels that can drop the whole history.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Options configures an Engine.
type Options struct {
	PollInterval  time.Duration
	RecordInitial bool
	// DisableWatcher runs the engine without polling the clipboard.
	DisableWatcher bool
}

// Engine owns the ClipStore and is the only goroutine that mutates it.
type Engine struct {
	clips *history.ClipStore
	board clipboard.Clipboard
	watch *watcher.Watcher
	opts  Options

	queue chan func()
	done  chan struct{}
	fatal error

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

var (
	_ Channel = (*Engine)(nil)
	_ Clearer = (*Engine)(nil)
)

// New creates an engine. Nothing runs until Run is called.
func New(clips *history.ClipStore, board clipboard.Clipboard, opts Options) *Engine {
	e := &Engine{
		clips: clips,
		board: board,
		opts:  opts,
		queue: make(chan func(), queueSize),
		done:  make(chan struct{}),
		subs:  make(map[int]chan Event),
	}
	e.watch = watcher.New(board, sink{e}, watcher.Options{
		Interval:      opts.PollInterval,
		RecordInitial: opts.RecordInitial,
		Poster:        e,
	})
	return e
}

// Run processes queued work until ctx is done or a watcher insert fails to
// persist. The persistence error is returned; cancellation returns nil.
func (e *Engine) Run(ctx context.Context) error {
	if !e.opts.DisableWatcher {
		e.watch.Start(ctx)
		defer e.watch.Stop()
	}
	// done closes first so a watcher blocked in Post can exit
	defer e.closeSubscribers()
	defer close(e.done)

	slog.Info("engine running", "clips", e.clips.Len())
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-e.queue:
			fn()
			if e.fatal != nil {
				return e.fatal
			}
		}
	}
}

// Post queues fn to run on the engine goroutine.
func (e *Engine) Post(fn func()) bool {
	select {
	case e.queue <- fn:
		return true
	case <-e.done:
		return false
	}
}

// Done is closed once Run returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// do runs fn on the engine goroutine and waits for it to finish.
func (e *Engine) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	work := func() { result <- fn() }

	select {
	case e.queue <- work:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-e.done:
		// Run may have exited right after executing the work
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh re-reads persisted state and returns it.
func (e *Engine) Refresh(ctx context.Context) ([]store.Clip, error) {
	var clips []store.Clip
	err := e.do(ctx, func() error {
		if err := e.clips.Reload(); err != nil {
			return err
		}
		clips = e.clips.List()
		return nil
	})
	return clips, err
}

// Delete removes the clip with id.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.do(ctx, func() error {
		removed, err := e.clips.Remove(id)
		if err != nil {
			return err
		}
		if removed {
			slog.Debug("clip deleted", "id", id)
			e.broadcast(EventRemoved{ID: id})
		}
		return nil
	})
}

// Write restores the clip with id to the native clipboard in the format
// matching its kind, then asks clients to yield focus.
func (e *Engine) Write(ctx context.Context, id string) error {
	return e.do(ctx, func() error {
		clip, ok := e.clips.Get(id)
		if !ok {
			return nil
		}
		if err := writeClip(e.board, clip); err != nil {
			return err
		}
		slog.Debug("clip written to clipboard", "id", id, "kind", clip.Kind)
		e.broadcast(EventYieldFocus{ID: id})
		return nil
	})
}

// Clear removes every clip and pushes the empty history.
func (e *Engine) Clear(ctx context.Context) error {
	return e.do(ctx, func() error {
		if err := e.clips.Clear(); err != nil {
			return err
		}
		e.broadcast(EventRefresh{Clips: nil})
		return nil
	})
}

// Subscribe registers a new event stream. The first event is an
// EventRefresh with the current history, so a subscriber never needs a
// separate Refresh that could race with later events. Events are dropped
// for a subscriber that is not keeping up.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Event, subscriberSize)
	if e.subs == nil {
		close(ch)
		return ch, func() {}
	}

	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	// Broadcasts hold e.mu, so nothing is sent on ch before the snapshot.
	// A mutation already applied but not yet broadcast shows up twice,
	// and every event is idempotent.
	ch <- EventRefresh{Clips: e.clips.List()}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

func (e *Engine) broadcast(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("subscriber too slow, dropping event", "subscriber", id, "event", fmt.Sprintf("%T", ev))
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.subs = nil
}

// insert records a clip detected by the watcher. It runs on the engine
// goroutine because the watcher posts its polls through Post.
func (e *Engine) insert(clip store.Clip) error {
	evicted, err := e.clips.Insert(clip)
	if err != nil {
		e.fatal = fmt.Errorf("failed to record clip: %w", err)
		return e.fatal
	}
	slog.Debug("clip recorded", "id", clip.ID, "kind", clip.Kind, "evicted", len(evicted))
	e.broadcast(EventNewClip{Clip: clip, Evicted: evicted})
	return nil
}

// sink adapts the engine to watcher.Sink without exporting insert.
type sink struct{ e *Engine }

func (s sink) Insert(clip store.Clip) error { return s.e.insert(clip) }

func writeClip(board clipboard.Clipboard, clip store.Clip) error {
	var err error
	switch clip.Kind {
	case store.KindImage:
		var data []byte
		if data, err = classify.DecodeImage(clip.Contents); err == nil {
			err = board.Write(clipboard.FormatImage, data)
		}
	case store.KindHTML:
		err = board.Write(clipboard.FormatHTML, []byte(clip.Contents))
	default:
		err = board.Write(clipboard.FormatText, []byte(clip.Contents))
	}
	if err != nil {
		return fmt.Errorf("failed to write clip to clipboard: %w", err)
	}
	return nil
}
