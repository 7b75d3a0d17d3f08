package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/clipboard/mockboard"
	"github.com/yiblet/ammo/internal/store"
)

type recordingSink struct {
	mu    sync.Mutex
	clips []store.Clip
	err   error
}

func (s *recordingSink) Insert(clip store.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.clips = append(s.clips, clip)
	return nil
}

func (s *recordingSink) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.clips))
	for i, c := range s.clips {
		out[i] = c.Label
	}
	return out
}

func TestPoll_DetectsChanges(t *testing.T) {
	board := mockboard.New()
	sink := &recordingSink{}
	w := New(board, sink, Options{})

	for _, text := range []string{"hello", "hello", "world"} {
		board.SetText(text)
		w.Poll()
	}

	got := sink.Labels()
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("recorded %v, want [hello world]", got)
	}
	if w.Baseline() != "world" {
		t.Errorf("Baseline() = %q, want world", w.Baseline())
	}
}

func TestPoll_IgnoresEmpty(t *testing.T) {
	board := mockboard.New()
	sink := &recordingSink{}
	w := New(board, sink, Options{})

	board.SetText("")
	w.Poll()

	if n := len(sink.Labels()); n != 0 {
		t.Errorf("recorded %d clips for empty clipboard", n)
	}
}

func TestPoll_ReadErrorIsNoChange(t *testing.T) {
	board := mockboard.New()
	sink := &recordingSink{}
	w := New(board, sink, Options{})

	board.SetText("hello")
	board.FailReads(errors.New("clipboard locked"))
	w.Poll()

	if n := len(sink.Labels()); n != 0 {
		t.Errorf("recorded %d clips after read error", n)
	}
	if w.Baseline() != "" {
		t.Errorf("Baseline() = %q after read error", w.Baseline())
	}

	board.FailReads(nil)
	w.Poll()
	if got := sink.Labels(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("recorded %v after recovery, want [hello]", got)
	}
}

func TestPoll_SinkErrorKeepsBaseline(t *testing.T) {
	board := mockboard.New()
	sink := &recordingSink{err: errors.New("disk full")}
	w := New(board, sink, Options{})

	board.SetText("hello")
	w.Poll()
	if w.Baseline() != "" {
		t.Errorf("Baseline() = %q after failed insert, want empty", w.Baseline())
	}

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	w.Poll()
	if got := sink.Labels(); len(got) != 1 {
		t.Errorf("recorded %v, want retry to succeed", got)
	}
}

func TestPoll_ImageOnly(t *testing.T) {
	board := mockboard.New()
	sink := &recordingSink{}
	w := New(board, sink, Options{})

	board.SetSnapshot(clipboard.Snapshot{
		Formats: []string{clipboard.FormatImage},
		Image:   []byte{0x89, 'P', 'N', 'G'},
	})
	w.Poll()
	w.Poll()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.clips) != 1 || sink.clips[0].Kind != store.KindImage {
		t.Errorf("recorded %+v, want one image clip", sink.clips)
	}
}

func TestStart_SeedsBaseline(t *testing.T) {
	board := mockboard.New()
	board.SetText("already there")
	sink := &recordingSink{}
	w := New(board, sink, Options{Interval: 5 * time.Millisecond})

	w.Start(context.Background())
	defer w.Stop()

	if w.Baseline() != "already there" {
		t.Errorf("Baseline() = %q, want seeded value", w.Baseline())
	}

	board.SetText("fresh")
	waitFor(t, func() bool { return len(sink.Labels()) == 1 })

	if got := sink.Labels(); got[0] != "fresh" {
		t.Errorf("recorded %v, want [fresh]", got)
	}
}

func TestStart_RecordInitial(t *testing.T) {
	board := mockboard.New()
	board.SetText("already there")
	sink := &recordingSink{}
	w := New(board, sink, Options{Interval: 5 * time.Millisecond, RecordInitial: true})

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool { return len(sink.Labels()) == 1 })
}

func TestStartStop_Lifecycle(t *testing.T) {
	board := mockboard.New()
	w := New(board, &recordingSink{}, Options{Interval: time.Millisecond})

	w.Start(context.Background())
	w.Start(context.Background())
	if !w.Running() {
		t.Fatal("expected watcher to be running")
	}

	w.Stop()
	if w.Running() {
		t.Fatal("expected watcher to be stopped")
	}
	w.Stop()

	reads := board.Reads()
	time.Sleep(10 * time.Millisecond)
	if board.Reads() != reads {
		t.Errorf("clipboard read after Stop: %d -> %d", reads, board.Reads())
	}
}

type queuePoster struct {
	mu  sync.Mutex
	fns []func()
}

func (p *queuePoster) Post(fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, fn)
	return true
}

func (p *queuePoster) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fns)
}

func TestTick_NotReentrant(t *testing.T) {
	board := mockboard.New()
	poster := &queuePoster{}
	w := New(board, &recordingSink{}, Options{Poster: poster})

	w.tick()
	w.tick()
	w.tick()
	if poster.Len() != 1 {
		t.Fatalf("posted %d polls while one was pending, want 1", poster.Len())
	}

	poster.fns[0]()
	w.tick()
	if poster.Len() != 2 {
		t.Errorf("posted %d polls after completion, want 2", poster.Len())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
