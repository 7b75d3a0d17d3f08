package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/yiblet/ammo/internal/engine"
	"github.com/yiblet/ammo/internal/message"
	"github.com/yiblet/ammo/internal/store"
)

const subscribeTimeout = 2 * time.Second

// ErrClosed is returned by requests on a closed client.
var ErrClosed = errors.New("ipc connection closed")

// Client talks to a daemon over its socket. It implements engine.Channel.
type Client struct {
	conn *message.Conn

	mu         sync.Mutex
	nextID     uint64
	pending    map[uint64]chan *message.Message
	subs       map[int]chan engine.Event
	nextSub    int
	subscribed bool
	closed     bool

	// history mirrors the daemon's list once its snapshot has arrived, so
	// later subscribers can start from a snapshot in stream order.
	history []store.Clip
	synced  bool

	done chan struct{}
}

var (
	_ engine.Channel = (*Client)(nil)
	_ engine.Clearer = (*Client)(nil)
)

// Dial connects to the daemon listening on path.
func Dial(path string) (*Client, error) {
	raw, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return newClient(raw), nil
}

func newClient(raw net.Conn) *Client {
	c := &Client{
		conn:    message.NewConn(raw),
		pending: make(map[uint64]chan *message.Message),
		subs:    make(map[int]chan engine.Event),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close ends the connection. Subscriber channels are closed.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

// Refresh requests the full history.
func (c *Client) Refresh(ctx context.Context) ([]store.Clip, error) {
	reply, err := c.call(ctx, &message.Message{Type: message.TypeRefresh})
	if err != nil {
		return nil, err
	}
	return reply.Clips, nil
}

// Delete asks the daemon to remove a clip.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.call(ctx, &message.Message{Type: message.TypeDelete, ClipID: id})
	return err
}

// Write asks the daemon to restore a clip to the clipboard.
func (c *Client) Write(ctx context.Context, id string) error {
	_, err := c.call(ctx, &message.Message{Type: message.TypeWrite, ClipID: id})
	return err
}

// Clear asks the daemon to drop the whole history.
func (c *Client) Clear(ctx context.Context) error {
	_, err := c.call(ctx, &message.Message{Type: message.TypeClear})
	return err
}

// Subscribe streams daemon events, starting with a history snapshot. The
// first subscriber registers interest with the daemon and returns once the
// daemon has acknowledged it.
func (c *Client) Subscribe() (<-chan engine.Event, func()) {
	c.mu.Lock()
	ch := make(chan engine.Event, 32)
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	if c.synced {
		ch <- engine.EventRefresh{Clips: slices.Clone(c.history)}
	}
	first := !c.subscribed
	c.subscribed = true
	c.mu.Unlock()

	if first {
		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		if _, err := c.call(ctx, &message.Message{Type: message.TypeSubscribe}); err != nil {
			slog.Warn("subscribe failed", "err", err)
		}
		cancel()
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Client) call(ctx context.Context, msg *message.Message) (*message.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.nextID++
	msg.ID = c.nextID
	reply := make(chan *message.Message, 1)
	c.pending[msg.ID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	if err := c.conn.Write(msg); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}

	select {
	case r, ok := <-reply:
		if !ok {
			return nil, ErrClosed
		}
		if r.Type == message.TypeError {
			return nil, errors.New(r.Error)
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.shutdown()

	for {
		msg, err := c.conn.Read()
		if err != nil {
			return
		}

		if msg.IsEvent() {
			if ev, ok := decodeEvent(msg); ok {
				c.publish(ev)
			}
			continue
		}

		c.mu.Lock()
		reply, ok := c.pending[msg.ID]
		c.mu.Unlock()
		if ok {
			reply <- msg
		}
	}
}

func (c *Client) publish(ev engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mirror(ev)
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping daemon event for slow subscriber", "event", fmt.Sprintf("%T", ev))
		}
	}
}

// mirror applies ev to the local copy of the history. c.mu must be held.
func (c *Client) mirror(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.EventRefresh:
		c.history = slices.Clone(ev.Clips)
		c.synced = true
	case engine.EventNewClip:
		if !c.synced {
			return
		}
		c.history = slices.DeleteFunc(c.history, func(clip store.Clip) bool {
			return clip.ID == ev.Clip.ID || slices.Contains(ev.Evicted, clip.ID)
		})
		c.history = slices.Insert(c.history, 0, ev.Clip)
	case engine.EventRemoved:
		c.history = slices.DeleteFunc(c.history, func(clip store.Clip) bool {
			return clip.ID == ev.ID
		})
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
