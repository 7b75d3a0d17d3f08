package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yiblet/ammo/internal/classify"
	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/clipboard/mockboard"
	"github.com/yiblet/ammo/internal/history"
	"github.com/yiblet/ammo/internal/store"
	"github.com/yiblet/ammo/internal/store/memstore"
)

type fixture struct {
	engine *Engine
	board  *mockboard.MockClipboard
	mem    *memstore.MemoryStore
	errs   chan error
	cancel context.CancelFunc
}

func start(t *testing.T, opts Options, seed ...store.Clip) *fixture {
	t.Helper()

	mem := memstore.NewMemoryStore()
	for i := len(seed) - 1; i >= 0; i-- {
		if _, err := mem.History().Insert(seed[i]); err != nil {
			t.Fatal(err)
		}
	}
	clips, err := history.New(mem.History(), 0)
	if err != nil {
		t.Fatal(err)
	}

	board := mockboard.New()
	e := New(clips, board, opts)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- e.Run(ctx) }()

	f := &fixture{engine: e, board: board, mem: mem, errs: errs, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		<-e.Done()
	})
	return f
}

// subscribe returns a stream positioned after its initial snapshot.
func (f *fixture) subscribe(t *testing.T) (<-chan Event, func()) {
	t.Helper()
	events, unsubscribe := f.subscribe(t)
	if _, ok := next(t, events).(EventRefresh); !ok {
		t.Fatal("expected snapshot as first event")
	}
	return events, unsubscribe
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestRefresh(t *testing.T) {
	a := store.NewClip("a", "a", store.KindText)
	b := store.NewClip("b", "b", store.KindText)
	f := start(t, Options{DisableWatcher: true}, b, a)

	clips, err := f.engine.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(clips) != 2 || clips[0].ID != b.ID || clips[1].ID != a.ID {
		t.Errorf("Refresh() = %+v, want [b a]", clips)
	}
}

func TestDelete(t *testing.T) {
	a := store.NewClip("a", "a", store.KindText)
	f := start(t, Options{DisableWatcher: true}, a)

	events, unsubscribe := f.subscribe(t)
	defer unsubscribe()

	if err := f.engine.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
	if err := f.engine.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	ev, ok := next(t, events).(EventRemoved)
	if !ok || ev.ID != a.ID {
		t.Errorf("event = %#v, want EventRemoved{%s}", ev, a.ID)
	}
	if n, _ := f.mem.History().Count(); n != 0 {
		t.Errorf("persisted count = %d, want 0", n)
	}
}

func TestDelete_PersistenceError(t *testing.T) {
	a := store.NewClip("a", "a", store.KindText)
	f := start(t, Options{DisableWatcher: true}, a)

	boom := errors.New("disk full")
	f.mem.FailWrites(boom)
	if err := f.engine.Delete(context.Background(), a.ID); !errors.Is(err, boom) {
		t.Errorf("Delete() error = %v, want %v", err, boom)
	}
}

func TestWrite_ByKind(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	text := store.NewClip("t", "plain", store.KindText)
	html := store.NewClip("h", "<b>h</b>", store.KindHTML)
	code := store.NewClip("c", "x := 1", store.KindCode)
	img := store.NewClip(classify.ImageLabel(png), classify.EncodeImage(png), store.KindImage)
	f := start(t, Options{DisableWatcher: true}, text, html, code, img)

	events, unsubscribe := f.subscribe(t)
	defer unsubscribe()

	for _, c := range []store.Clip{text, html, code, img} {
		if err := f.engine.Write(context.Background(), c.ID); err != nil {
			t.Fatalf("Write(%s) error = %v", c.Label, err)
		}
		ev, ok := next(t, events).(EventYieldFocus)
		if !ok || ev.ID != c.ID {
			t.Errorf("event = %#v, want EventYieldFocus{%s}", ev, c.ID)
		}
	}

	writes := f.board.Writes()
	want := []struct {
		format string
		data   string
	}{
		{clipboard.FormatText, "plain"},
		{clipboard.FormatHTML, "<b>h</b>"},
		{clipboard.FormatText, "x := 1"},
		{clipboard.FormatImage, string(png)},
	}
	if len(writes) != len(want) {
		t.Fatalf("writes = %d, want %d", len(writes), len(want))
	}
	for i, w := range want {
		if writes[i].Format != w.format || string(writes[i].Data) != w.data {
			t.Errorf("write %d = %s %q, want %s %q", i, writes[i].Format, writes[i].Data, w.format, w.data)
		}
	}

	if err := f.engine.Write(context.Background(), "missing"); err != nil {
		t.Errorf("Write(missing) error = %v", err)
	}
	if len(f.board.Writes()) != len(want) {
		t.Error("Write(missing) touched the clipboard")
	}
}

func TestWatcherPushesNewClips(t *testing.T) {
	f := start(t, Options{PollInterval: 5 * time.Millisecond})

	events, unsubscribe := f.subscribe(t)
	defer unsubscribe()

	f.board.SetText("hello")
	first, ok := next(t, events).(EventNewClip)
	if !ok || first.Clip.Label != "hello" {
		t.Fatalf("event = %#v, want new clip hello", first)
	}

	f.board.SetText("world")
	second, ok := next(t, events).(EventNewClip)
	if !ok || second.Clip.Label != "world" {
		t.Fatalf("event = %#v, want new clip world", second)
	}

	f.board.SetText("hello")
	third, ok := next(t, events).(EventNewClip)
	if !ok || len(third.Evicted) != 1 || third.Evicted[0] != first.Clip.ID {
		t.Fatalf("event = %#v, want hello to evict %s", third, first.Clip.ID)
	}

	clips, err := f.engine.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 2 || clips[0].Label != "hello" || clips[1].Label != "world" {
		t.Errorf("Refresh() = %+v, want [hello world]", clips)
	}
}

func TestWriteIsRecapturedAtFront(t *testing.T) {
	a := store.NewClip("a", "a", store.KindText)
	b := store.NewClip("b", "b", store.KindText)
	f := start(t, Options{PollInterval: 5 * time.Millisecond}, b, a)

	events, unsubscribe := f.subscribe(t)
	defer unsubscribe()

	if err := f.engine.Write(context.Background(), a.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := next(t, events).(EventYieldFocus); !ok {
		t.Fatal("expected yield focus")
	}

	ev, ok := next(t, events).(EventNewClip)
	if !ok || ev.Clip.Label != "a" || len(ev.Evicted) != 1 || ev.Evicted[0] != a.ID {
		t.Fatalf("event = %#v, want a re-captured", ev)
	}
}

func TestRun_FatalInsertError(t *testing.T) {
	f := start(t, Options{PollInterval: 5 * time.Millisecond})

	boom := errors.New("disk full")
	f.mem.FailWrites(boom)
	f.board.SetText("hello")

	select {
	case err := <-f.errs:
		if !errors.Is(err, boom) {
			t.Errorf("Run() error = %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop on persistence failure")
	}

	if _, err := f.engine.Refresh(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Refresh() after stop error = %v, want ErrStopped", err)
	}
}

func TestSubscribe_ClosedOnStop(t *testing.T) {
	f := start(t, Options{DisableWatcher: true})
	events, _ := f.subscribe(t)

	f.cancel()
	<-f.engine.Done()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}
}

func TestClear(t *testing.T) {
	f := start(t, Options{DisableWatcher: true}, store.NewClip("a", "a", store.KindText))
	events, unsubscribe := f.subscribe(t)
	defer unsubscribe()

	if err := f.engine.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ev, ok := next(t, events).(EventRefresh); !ok || len(ev.Clips) != 0 {
		t.Errorf("event = %#v, want empty refresh", ev)
	}
}

func TestSubscribe_StartsWithSnapshot(t *testing.T) {
	a := store.NewClip("a", "a", store.KindText)
	b := store.NewClip("b", "b", store.KindText)
	f := start(t, Options{DisableWatcher: true}, b, a)

	events, unsubscribe := f.engine.Subscribe()
	defer unsubscribe()

	ev, ok := next(t, events).(EventRefresh)
	if !ok {
		t.Fatalf("first event = %#v, want snapshot", ev)
	}
	if len(ev.Clips) != 2 || ev.Clips[0].ID != b.ID || ev.Clips[1].ID != a.ID {
		t.Errorf("snapshot = %+v, want [b a]", ev.Clips)
	}

	// Later changes follow the snapshot on the same stream
	if err := f.engine.Delete(context.Background(), b.ID); err != nil {
		t.Fatal(err)
	}
	if ev, ok := next(t, events).(EventRemoved); !ok || ev.ID != b.ID {
		t.Errorf("event = %#v, want removal of b", ev)
	}
}
