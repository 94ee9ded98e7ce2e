// Package capability defines what happens over an established
// connection.  The server side runs the chat Hub on every accepted
// connection; the client side relays the user's terminal.
package capability

import (
	"context"
	"net"
)

// Capability handles a single connection according to a specific
// behaviour.  Implementations are the chat Hub (server) and Relay
// (client).
type Capability interface {
	// Handle runs the capability against conn.  It blocks until the
	// connection is done or the context is cancelled, and closes conn
	// before returning.
	Handle(ctx context.Context, conn net.Conn) error
}
