// Package message defines the envelope exchanged between a running ammo
// daemon and its clients.
//
// Messages are newline-delimited JSON values of any size. A client sends
// requests carrying an ID and receives exactly one reply with the same ID;
// after SUBSCRIBE the connection also carries pushed events with no ID.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/yiblet/ammo/internal/store"
)

// Type identifies the kind of message.
type Type string

const (
	// Requests
	TypeRefresh   Type = "REFRESH"
	TypeDelete    Type = "DELETE"
	TypeWrite     Type = "WRITE"
	TypeSubscribe Type = "SUBSCRIBE"
	TypeClear     Type = "CLEAR"

	// Replies
	TypeClips Type = "CLIPS"
	TypeOK    Type = "OK"
	TypeError Type = "ERROR"

	// Pushed events
	TypeNewClip    Type = "NEW_CLIP"
	TypeRemoved    Type = "REMOVED"
	TypeYieldFocus Type = "YIELD_FOCUS"
)

// Message is the wire envelope.
type Message struct {
	Type Type   `json:"type"`
	ID   uint64 `json:"id,omitempty"`

	// DELETE, WRITE, REMOVED, YIELD_FOCUS
	ClipID string `json:"clip_id,omitempty"`

	// CLIPS
	Clips []store.Clip `json:"clips,omitempty"`

	// NEW_CLIP
	Clip    *store.Clip `json:"clip,omitempty"`
	Evicted []string    `json:"evicted,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// IsEvent reports whether m is pushed rather than a reply.
func (m *Message) IsEvent() bool {
	switch m.Type {
	case TypeNewClip, TypeRemoved, TypeYieldFocus:
		return true
	case TypeClips:
		return m.ID == 0
	}
	return false
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Message) validate() error {
	if m.Type == "" {
		return fmt.Errorf("message decode: missing type")
	}
	return nil
}

// Conn frames messages over a byte stream. Writes are safe for concurrent
// use; reads must happen from a single goroutine. Messages are streamed, so
// a history full of images needs no line buffer of matching size.
type Conn struct {
	rw  io.ReadWriteCloser
	dec *json.Decoder
	enc *json.Encoder
	wmu sync.Mutex
}

// NewConn wraps rw.
func NewConn(rw io.ReadWriteCloser) *Conn {
	enc := json.NewEncoder(rw)
	enc.SetEscapeHTML(false)
	return &Conn{rw: rw, dec: json.NewDecoder(rw), enc: enc}
}

// Write sends one message followed by a newline.
func (c *Conn) Write(m *Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.enc.Encode(m); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read blocks for the next message. It returns io.EOF when the peer closes
// the stream between messages.
func (c *Conn) Read() (*Message, error) {
	var m Message
	if err := c.dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.rw.Close()
}
