// Package transport abstracts the duplex frame transport between the
// client core and the backend. The connection manager only ever sees
// this interface, which keeps it testable against an in-memory fake.
package transport

import (
	"context"
	"fmt"
)

// Close codes the backend uses to signal an invalid session. A close
// carrying one of these is an authentication failure, not a network
// fault.
const (
	CodeProtocolError   = 1002
	CodePolicyViolation = 1008
)

// Conn is a single duplex text-frame connection.
type Conn interface {
	// ReadFrame reads one text frame. A server-initiated close surfaces
	// as *CloseError.
	ReadFrame() ([]byte, error)

	// WriteFrame sends one text frame. Safe for concurrent use.
	WriteFrame(data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Dialer opens transport connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// CloseError reports a transport close initiated by the peer, with the
// status code it carried.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed with status %d", e.Code)
	}
	return fmt.Sprintf("connection closed with status %d: %s", e.Code, e.Reason)
}

// IsAuthFailure reports whether the close code signals that the session
// is no longer valid.
func (e *CloseError) IsAuthFailure() bool {
	return e.Code == CodePolicyViolation || e.Code == CodeProtocolError
}
