package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/campus-planet/chat-service/internal/domain"
)

type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

// Conn is the transport handle a session writes to. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one live connection bound to a room and a user.
// Lifecycle: connecting -> active -> closed; closed is terminal.
type Session struct {
	conn   Conn
	roomID int64
	user   domain.User

	sendMu chan struct{} // serializes writes, FIFO per session
	closed chan struct{}

	mu     sync.Mutex
	state  State
	reason error
}

func NewSession(conn Conn, roomID int64, user domain.User) *Session {
	return &Session{
		conn:   conn,
		roomID: roomID,
		user:   user,
		state:  StateConnecting,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (s *Session) RoomID() int64     { return s.roomID }
func (s *Session) User() domain.User { return s.user }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate marks the session admitted. No-op unless still connecting.
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting {
		s.state = StateActive
	}
}

// Send writes one payload to the transport. Writes are serialized, so
// successive sends reach the peer in call order.
func (s *Session) Send(v any) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	s.sendMu <- struct{}{}
	defer func() { <-s.sendMu }()

	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := s.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// Close transitions the session to its terminal state, recording the
// first reason given and closing the transport. Safe to call from any
// goroutine, any number of times.
func (s *Session) Close(reason error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.reason = reason
	s.mu.Unlock()

	close(s.closed)
	_ = s.conn.Close()
}

// Closed signals terminal state.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// CloseReason reports why the session ended; nil while it is live.
func (s *Session) CloseReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
