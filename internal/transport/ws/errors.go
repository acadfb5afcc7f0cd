package ws

import "errors"

// Session-fatal error classes. The close reason of a session wraps
// exactly one of these so callers can tell which failure ended it.
var (
	// ErrProtocol: malformed inbound payload while active.
	ErrProtocol = errors.New("protocol error")
	// ErrDelivery: an outbound write to this session failed.
	ErrDelivery = errors.New("delivery failure")
	// ErrPersistence: the storage collaborator failed mid-stream.
	ErrPersistence = errors.New("persistence failure")
	// ErrTransportClosed: the peer went away; the normal exit.
	ErrTransportClosed = errors.New("transport closed")

	// ErrSessionClosed is returned by Send on an already-closed session.
	ErrSessionClosed = errors.New("session closed")
)
