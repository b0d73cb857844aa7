package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/climbbox/boxhub/logger"
)

const writeWait = 5 * time.Second

// Role distinguishes an authenticated operator connection from a
// spectator/public one; the public channel only ever accepts REQUEST_STATE.
type Role string

const (
	RoleOperator  Role = "operator"
	RoleSpectator Role = "spectator"
)

// Subscriber is one live WebSocket connection fanned out to by a Hub.
type Subscriber struct {
	ID    string
	BoxID int
	Role  Role

	conn *websocket.Conn

	sendMu     sync.Mutex
	send       chan Frame
	sendClosed bool

	doneOnce sync.Once
	closed   chan struct{}
}

// NewSubscriber wraps conn with a bounded outbound queue of the given depth.
func NewSubscriber(id string, boxID int, role Role, conn *websocket.Conn, queueDepth int) *Subscriber {
	return &Subscriber{
		ID:     id,
		BoxID:  boxID,
		Role:   role,
		conn:   conn,
		send:   make(chan Frame, queueDepth),
		closed: make(chan struct{}),
	}
}

// TrySend enqueues frame for delivery, for a handler that wants to answer
// one subscriber directly (e.g. REQUEST_STATE) without going through a
// Hub.Broadcast of every box subscriber. Reports false if the queue is
// full or the subscriber's send side has already been closed — the
// mutex makes that check-and-send atomic with closeSend, so a frame is
// never sent on a channel a concurrent eviction just closed.
func (s *Subscriber) TrySend(frame Frame) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue exactly once, safe to call
// concurrently with TrySend — no send can race a close.
func (s *Subscriber) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return
	}
	s.sendClosed = true
	close(s.send)
}

// evict closes the underlying connection with the given code, for a
// subscriber the hub is forcibly dropping (slow consumer, superseded
// session, auth revoked mid-connection).
func (s *Subscriber) evict(code int, reason string) {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	_ = s.conn.Close()
}

// WritePump delivers frames from the send queue to the connection and pings
// on the configured interval, exiting when send is closed (by Hub.unregister)
// or a write fails.
func (s *Subscriber) WritePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				logger.Logger.Debugw("subscriber write failed",
					logger.FieldSubscriber, s.ID, logger.FieldError, err.Error())
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}

// ReadPump reads inbound frames until the connection closes or the pong
// timeout lapses, invoking onMessage for each text frame it reads. It
// refreshes the read deadline on every pong, per the configured timeout.
func (s *Subscriber) ReadPump(pongTimeout time.Duration, onMessage func([]byte)) {
	defer func() {
		s.doneOnce.Do(func() { close(s.closed) })
		_ = s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				logger.Logger.Debugw("subscriber closed",
					logger.FieldSubscriber, s.ID, "code", closeErr.Code)
			}
			return
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}
