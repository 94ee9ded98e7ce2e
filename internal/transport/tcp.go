package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"chatd/internal/errors"
)

// DefaultKeepAlive is the TCP keep-alive period for both accepted and
// dialed connections.
const DefaultKeepAlive = 30 * time.Second

// TCPDialer establishes plain TCP connections, optionally binding to a
// specific source port.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration // 0 = DefaultKeepAlive, <0 disables
	LocalPort int           // optional source-port binding (0 = ephemeral)
}

// Dial connects to address over TCP.  Failures come back as
// *errors.NetworkError so callers can decide whether to retry.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: keepAlive(d.KeepAlive)}

	if d.LocalPort > 0 {
		local := fmt.Sprintf(":%d", d.LocalPort)
		a, err := net.ResolveTCPAddr(network, local)
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, errors.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

// Listen opens a TCP listener on address.
func Listen(ctx context.Context, address string, keep time.Duration) (net.Listener, error) {
	lc := net.ListenConfig{KeepAlive: keepAlive(keep)}
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrap("listen", address, err)
	}
	return ln, nil
}

func keepAlive(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultKeepAlive
	}
	return d
}
