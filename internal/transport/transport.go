// Package transport opens the TCP connections chatd runs over: the
// server's listener and the client's outbound dial.  What happens on
// the connection is the chat and capability layers' business.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}
