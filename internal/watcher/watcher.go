// Package watcher polls the native clipboard and records every change.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yiblet/ammo/internal/classify"
	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/store"
)

// DefaultInterval is how often the clipboard is sampled.
const DefaultInterval = 500 * time.Millisecond

// Sink receives each newly detected clip.
type Sink interface {
	Insert(clip store.Clip) error
}

// Poster schedules fn onto a serialized queue. It returns false when the
// queue no longer accepts work.
type Poster interface {
	Post(fn func()) bool
}

// Options configures a Watcher.
type Options struct {
	// Interval between samples. Zero means DefaultInterval.
	Interval time.Duration
	// RecordInitial records whatever is on the clipboard at Start instead
	// of treating it as already seen.
	RecordInitial bool
	// Poster runs each poll. If nil, polls run on the watcher goroutine.
	Poster Poster
}

// Watcher detects clipboard changes by comparing the classified label of
// each sample against the last recorded one.
type Watcher struct {
	board clipboard.Clipboard
	sink  Sink
	opts  Options

	mu       sync.Mutex
	baseline string
	cancel   context.CancelFunc
	done     chan struct{}

	pending atomic.Bool
}

// New creates a stopped Watcher.
func New(board clipboard.Clipboard, sink Sink, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Watcher{board: board, sink: sink, opts: opts}
}

// Start begins polling. A watcher that is already running is stopped first,
// so there is never more than one polling loop.
func (w *Watcher) Start(ctx context.Context) {
	w.Stop()

	if !w.opts.RecordInitial {
		w.seed()
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.loop(ctx, done)
	slog.Debug("clipboard watcher started", "interval", w.opts.Interval)
}

// Stop halts polling and waits for the loop to exit. It is safe to call on
// a stopped watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Debug("clipboard watcher stopped")
}

// Running reports whether a polling loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick schedules one poll unless the previous one has not finished.
func (w *Watcher) tick() {
	if !w.pending.CompareAndSwap(false, true) {
		return
	}

	run := func() {
		defer w.pending.Store(false)
		w.Poll()
	}

	if w.opts.Poster == nil {
		run()
		return
	}
	if !w.opts.Poster.Post(run) {
		w.pending.Store(false)
	}
}

// Poll samples the clipboard once and hands a clip to the sink if the
// contents changed since the last recorded sample.
func (w *Watcher) Poll() {
	snap, err := w.board.Read()
	if err != nil {
		slog.Warn("clipboard read failed", "err", err)
		return
	}

	key := classify.Key(snap)
	if key == "" || key == w.Baseline() {
		return
	}

	res := classify.Classify(snap)
	if err := w.sink.Insert(res.Clip()); err != nil {
		slog.Error("failed to record clip", "err", err)
		return
	}

	w.mu.Lock()
	w.baseline = key
	w.mu.Unlock()
}

// Baseline returns the key of the last recorded sample.
func (w *Watcher) Baseline() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.baseline
}

func (w *Watcher) seed() {
	snap, err := w.board.Read()
	if err != nil {
		slog.Warn("clipboard read failed", "err", err)
		return
	}

	w.mu.Lock()
	w.baseline = classify.Key(snap)
	w.mu.Unlock()
}
