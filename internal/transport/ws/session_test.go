package ws

import (
	"errors"
	"fmt"
	"testing"
)

func TestSession_Lifecycle(t *testing.T) {
	s, conn := func() (*Session, *fakeConn) {
		c := &fakeConn{}
		return NewSession(c, 1, testUser(10)), c
	}()

	if s.State() != StateConnecting {
		t.Fatalf("new session state = %v, want connecting", s.State())
	}

	s.Activate()
	if s.State() != StateActive {
		t.Fatalf("state after Activate = %v, want active", s.State())
	}

	s.Close(ErrTransportClosed)
	if s.State() != StateClosed {
		t.Fatalf("state after Close = %v, want closed", s.State())
	}
	if !conn.closed {
		t.Fatal("underlying transport not closed")
	}

	// closed is terminal
	s.Activate()
	if s.State() != StateClosed {
		t.Fatalf("Activate left closed state: %v", s.State())
	}
}

func TestSession_CloseKeepsFirstReason(t *testing.T) {
	s := NewSession(&fakeConn{}, 1, testUser(10))
	s.Activate()

	first := fmt.Errorf("%w: read tcp: reset", ErrTransportClosed)
	s.Close(first)
	s.Close(fmt.Errorf("%w: later", ErrDelivery))

	if !errors.Is(s.CloseReason(), ErrTransportClosed) {
		t.Fatalf("reason = %v, want the first close reason", s.CloseReason())
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	s := NewSession(&fakeConn{}, 1, testUser(10))
	s.Activate()
	s.Close(ErrTransportClosed)

	if err := s.Send(MessagePayload{Content: "x"}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Send after close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_SendWrapsDeliveryFailure(t *testing.T) {
	conn := &fakeConn{fail: true}
	s := NewSession(conn, 1, testUser(10))
	s.Activate()

	if err := s.Send(MessagePayload{Content: "x"}); !errors.Is(err, ErrDelivery) {
		t.Fatalf("Send on broken transport = %v, want ErrDelivery", err)
	}
}
