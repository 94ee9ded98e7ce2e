package core

import (
	"context"
	"fmt"
	"net"
	"time"

	"chatd/internal/capability"
	"chatd/internal/retry"
	"chatd/internal/transport"
	"chatd/util"
)

// ConnectMode dials a chat server and runs a capability (normally the
// terminal Relay) on the resulting connection.
type ConnectMode struct {
	Dialer     transport.Dialer
	Backoff    *retry.Backoff // nil = dial once
	Capability capability.Capability
	Address    string
	Logger     *util.Logger
}

// Run dials the server, retrying refused connections per Backoff, and
// hands the connection to the capability.  The transport is closed when
// Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	conn, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())
	return m.Capability.Handle(ctx, conn)
}

func (m *ConnectMode) dial(ctx context.Context) (net.Conn, error) {
	m.Logger.Verbose("connecting to %s", m.Address)

	if m.Backoff == nil {
		return m.Dialer.Dial(ctx, "tcp", m.Address)
	}

	b := *m.Backoff
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Logger.Warn("attempt %d failed: %v (retrying in %s)", attempt, err, wait.Round(time.Millisecond))
	}

	var conn net.Conn
	err := b.Do(ctx, func(int) error {
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	return conn, err
}
