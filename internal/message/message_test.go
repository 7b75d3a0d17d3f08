package message

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/yiblet/ammo/internal/store"
)

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "{"},
		{"missing type", `{"id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIsEvent(t *testing.T) {
	tests := []struct {
		msg  Message
		want bool
	}{
		{Message{Type: TypeNewClip}, true},
		{Message{Type: TypeRemoved}, true},
		{Message{Type: TypeYieldFocus}, true},
		{Message{Type: TypeClips}, true},
		{Message{Type: TypeClips, ID: 3}, false},
		{Message{Type: TypeOK, ID: 3}, false},
		{Message{Type: TypeError, ID: 3}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsEvent(); got != tt.want {
			t.Errorf("IsEvent(%+v) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestConn_Exchange(t *testing.T) {
	a, b := net.Pipe()
	left, right := NewConn(a), NewConn(b)
	defer left.Close()

	clip := store.NewClip("hello\nworld", "hello\nworld", store.KindText)
	go func() {
		_ = left.Write(&Message{Type: TypeNewClip, Clip: &clip, Evicted: []string{"old"}})
		_ = left.Close()
	}()

	got, err := right.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Type != TypeNewClip || got.Clip == nil || got.Clip.ID != clip.ID || got.Clip.Label != clip.Label {
		t.Errorf("Read() = %+v", got)
	}
	if len(got.Evicted) != 1 || got.Evicted[0] != "old" {
		t.Errorf("Evicted = %v", got.Evicted)
	}

	if _, err := right.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("Read() after close error = %v, want EOF", err)
	}
}

func TestConn_LargeReply(t *testing.T) {
	a, b := net.Pipe()
	left, right := NewConn(a), NewConn(b)
	defer left.Close()
	defer right.Close()

	// A history of screenshots easily exceeds any fixed line buffer
	image := "data:image/png;base64," + strings.Repeat("A", 1<<20)
	clips := make([]store.Clip, 70)
	for i := range clips {
		clips[i] = store.NewClip("image.png", image, store.KindImage)
	}

	go func() {
		_ = left.Write(&Message{Type: TypeClips, ID: 7, Clips: clips})
	}()

	got, err := right.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.ID != 7 || len(got.Clips) != len(clips) {
		t.Fatalf("Read() = id %d with %d clips, want id 7 with %d", got.ID, len(got.Clips), len(clips))
	}
	if got.Clips[69].Contents != image {
		t.Error("Contents changed in transit")
	}
}

func TestConn_ReadMissingType(t *testing.T) {
	a, b := net.Pipe()
	right := NewConn(b)
	defer right.Close()

	go func() {
		_, _ = a.Write([]byte(`{"id":1}` + "\n"))
		_ = a.Close()
	}()

	if _, err := right.Read(); err == nil {
		t.Error("expected error for message without a type")
	}
}
