package core

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chatd/internal/capability"
	"chatd/internal/errors"
	"chatd/internal/metrics"
	"chatd/internal/transport"
	"chatd/util"
)

// shutdowner is implemented by handlers that can drain their own
// connections, such as the chat Hub.
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ServeMode accepts inbound TCP connections and runs the handler on
// each one in its own goroutine until the context is cancelled.
type ServeMode struct {
	Address     string // "host:port"
	MaxConns    int    // 0 = unlimited
	GracePeriod time.Duration
	Handler     capability.Capability
	Metrics     *metrics.Collector
	Logger      *util.Logger

	// Listener, when set, is used instead of listening on Address.
	Listener net.Listener
}

// Run listens, serves connections, and on cancellation stops accepting
// and gives live connections GracePeriod to close.  Only listen and
// fatal accept failures are returned.
func (m *ServeMode) Run(ctx context.Context) error {
	ln := m.Listener
	if ln == nil {
		var err error
		ln, err = transport.Listen(ctx, m.Address, 0)
		if err != nil {
			return err
		}
	}
	defer ln.Close()

	m.Logger.Info("listening on %s", ln.Addr())

	var sem chan struct{}
	if m.MaxConns > 0 {
		sem = make(chan struct{}, m.MaxConns)
	}
	var conns sync.WaitGroup

	g, gctx := errgroup.WithContext(ctx)

	// Shut the listener down when the context expires.
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					m.Logger.Warn("accept: %v", err)
					time.Sleep(50 * time.Millisecond)
					continue
				}
				return errors.Wrap("accept", ln.Addr().String(), err)
			}

			if sem != nil {
				select {
				case sem <- struct{}{}:
				default:
					m.Logger.Warn("connection limit (%d) reached, rejecting %s", m.MaxConns, conn.RemoteAddr())
					m.Metrics.RecordError("connection limit reached")
					conn.Close()
					continue
				}
			}

			conns.Add(1)
			go func() {
				defer conns.Done()
				if sem != nil {
					defer func() { <-sem }()
				}
				if err := m.Handler.Handle(gctx, conn); err != nil {
					m.Logger.Debug("connection %s ended: %v", conn.RemoteAddr(), err)
				}
			}()
		}
	})

	err := g.Wait()
	if err != nil {
		m.Logger.Error("%v", err)
	}

	m.drain(&conns)
	m.Logger.Verbose("metrics: %s", m.Metrics.JSON())
	return err
}

// drain asks the handler to close its connections and waits up to
// GracePeriod for the connection goroutines.
func (m *ServeMode) drain(conns *sync.WaitGroup) {
	grace := m.GracePeriod
	if grace <= 0 {
		grace = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if s, ok := m.Handler.(shutdowner); ok {
		if err := s.Shutdown(ctx); err != nil {
			m.Logger.Warn("shutdown: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.Logger.Verbose("all connections closed")
	case <-ctx.Done():
		m.Logger.Warn("gave up waiting for connection handlers after %s", grace)
	}
}
