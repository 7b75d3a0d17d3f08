package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/yiblet/ammo/internal/engine"
	"github.com/yiblet/ammo/internal/message"
)

// Server exposes an engine.Channel to socket clients.
type Server struct {
	channel engine.Channel

	wg sync.WaitGroup
}

// NewServer creates a server for channel.
func NewServer(channel engine.Channel) *Server {
	return &Server{channel: channel}
}

// Serve accepts connections until ctx is done or the listener fails. It
// closes ln and waits for open connections to finish before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	slog.Info("ipc listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			cancel()
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, raw net.Conn) {
	conn := message.NewConn(raw)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	log := slog.With("peer", "ipc")
	log.Debug("client connected")
	defer log.Debug("client disconnected")

	var subscribed bool
	for {
		msg, err := conn.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Debug("read failed", "err", err)
			}
			return
		}

		if msg.Type == message.TypeSubscribe {
			if !subscribed {
				subscribed = true
				events, unsubscribe := s.channel.Subscribe()
				go s.forward(ctx, conn, events, unsubscribe)
			}
			s.reply(conn, &message.Message{Type: message.TypeOK, ID: msg.ID})
			continue
		}

		s.reply(conn, s.dispatch(ctx, msg))
	}
}

func (s *Server) dispatch(ctx context.Context, msg *message.Message) *message.Message {
	var (
		reply = &message.Message{Type: message.TypeOK, ID: msg.ID}
		err   error
	)

	switch msg.Type {
	case message.TypeRefresh:
		reply.Type = message.TypeClips
		reply.Clips, err = s.channel.Refresh(ctx)
	case message.TypeDelete:
		err = s.channel.Delete(ctx, msg.ClipID)
	case message.TypeWrite:
		err = s.channel.Write(ctx, msg.ClipID)
	case message.TypeClear:
		clearer, ok := s.channel.(engine.Clearer)
		if !ok {
			return &message.Message{Type: message.TypeError, ID: msg.ID, Error: "clear not supported"}
		}
		err = clearer.Clear(ctx)
	default:
		return &message.Message{Type: message.TypeError, ID: msg.ID, Error: "unknown message type: " + string(msg.Type)}
	}

	if err != nil {
		return &message.Message{Type: message.TypeError, ID: msg.ID, Error: err.Error()}
	}
	return reply
}

// forward streams engine events to the connection until either side ends.
func (s *Server) forward(ctx context.Context, conn *message.Conn, events <-chan engine.Event, unsubscribe func()) {
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close()
				return
			}
			if err := conn.Write(encodeEvent(ev)); err != nil {
				return
			}
		}
	}
}

func (s *Server) reply(conn *message.Conn, msg *message.Message) {
	if err := conn.Write(msg); err != nil {
		slog.Debug("ipc write failed", "err", err)
	}
}

func encodeEvent(ev engine.Event) *message.Message {
	switch ev := ev.(type) {
	case engine.EventRefresh:
		return &message.Message{Type: message.TypeClips, Clips: ev.Clips}
	case engine.EventNewClip:
		clip := ev.Clip
		return &message.Message{Type: message.TypeNewClip, Clip: &clip, Evicted: ev.Evicted}
	case engine.EventRemoved:
		return &message.Message{Type: message.TypeRemoved, ClipID: ev.ID}
	case engine.EventYieldFocus:
		return &message.Message{Type: message.TypeYieldFocus, ClipID: ev.ID}
	}
	return &message.Message{Type: message.TypeError, Error: "unknown event"}
}

func decodeEvent(msg *message.Message) (engine.Event, bool) {
	switch msg.Type {
	case message.TypeClips:
		return engine.EventRefresh{Clips: msg.Clips}, true
	case message.TypeNewClip:
		if msg.Clip == nil {
			return nil, false
		}
		return engine.EventNewClip{Clip: *msg.Clip, Evicted: msg.Evicted}, true
	case message.TypeRemoved:
		return engine.EventRemoved{ID: msg.ClipID}, true
	case message.TypeYieldFocus:
		return engine.EventYieldFocus{ID: msg.ClipID}, true
	}
	return nil, false
}
