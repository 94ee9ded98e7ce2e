// Package chat implements the chat service proper: command dispatch,
// best-effort delivery and the per-connection lifecycle that ties a
// Session to the shared Registry.
package chat

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"chatd/internal/errors"
	"chatd/internal/metrics"
	"chatd/internal/protocol"
	"chatd/internal/registry"
	"chatd/internal/session"
	"chatd/util"
)

// defaultFlushTimeout bounds how long cleanup waits for a session's
// queued lines when no write timeout is configured.
const defaultFlushTimeout = 5 * time.Second

// Config holds the per-connection knobs the Hub applies to every
// session it creates.
type Config struct {
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	OutboxSize   int
	MaxLineBytes int
	Greeting     string
}

// Hub owns the connection lifecycle: it creates a Session per accepted
// connection, runs the read loop, and guarantees a single cleanup path
// whatever ends the connection.
type Hub struct {
	cfg        Config
	reg        *registry.Registry
	out        *Delivery
	dispatcher *Dispatcher
	metrics    *metrics.Collector
	logger     *util.Logger
	closing    atomic.Bool
}

// NewHub builds a Hub with a fresh Registry.  m may be nil.
func NewHub(cfg Config, m *metrics.Collector, logger *util.Logger) *Hub {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	reg := registry.New()
	out := NewDelivery(reg, m)
	return &Hub{
		cfg:        cfg,
		reg:        reg,
		out:        out,
		dispatcher: NewDispatcher(reg, out, m),
		metrics:    m,
		logger:     logger,
	}
}

// Registry exposes the Hub's registry.
func (h *Hub) Registry() *registry.Registry { return h.reg }

// Handle serves one connection until the peer leaves, an I/O error
// occurs, a policy disconnect fires or ctx is cancelled.  It always
// closes conn before returning.  The returned error is informational:
// nil for a peer hang-up, ErrIdleTimeout after an idle eviction.
func (h *Hub) Handle(ctx context.Context, conn net.Conn) error {
	sess := session.New(conn, session.Options{
		IdleTimeout:  h.cfg.IdleTimeout,
		WriteTimeout: h.cfg.WriteTimeout,
		OutboxSize:   h.cfg.OutboxSize,
		MaxLineBytes: h.cfg.MaxLineBytes,
		OnIdle:       h.evictIdle,
		Metrics:      h.metrics,
		Logger:       h.logger,
	})
	log := sess.Logger()

	if h.closing.Load() {
		sess.CloseWithNotice(protocol.NoticeShutdown)
		sess.WaitWriter(h.flushTimeout())
		sess.Close() //nolint:errcheck
		return errors.ErrShutdown
	}

	h.reg.Join(sess)
	h.metrics.ConnectionOpened()
	log.Verbose("connection accepted")
	defer h.cleanup(sess)

	if h.cfg.Greeting != "" {
		h.out.Unicast(sess, h.cfg.Greeting)
	}
	sess.ResetIdle()

	stop := context.AfterFunc(ctx, func() {
		sess.CloseWithNotice(protocol.NoticeShutdown)
	})
	defer stop()

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			h.metrics.BytesReceived(int64(n))
			lines, ferr := sess.Feed(buf[:n])
			for _, line := range lines {
				sess.ResetIdle()
				h.dispatcher.Dispatch(sess, line)
			}
			if ferr != nil {
				log.Warn("closing connection: %v", ferr)
				h.metrics.RecordError(ferr.Error())
				return ferr
			}
		}
		if err != nil {
			return h.readError(sess, err)
		}
	}
}

func (h *Hub) readError(sess *session.Session, err error) error {
	log := sess.Logger()
	switch {
	case sess.IdleExpired():
		log.Debug("read loop finished after idle eviction: %v", err)
		return errors.ErrIdleTimeout
	case util.IsHarmless(err) || sess.Closed():
		log.Debug("read loop finished: %v", err)
		return nil
	case errors.IsTimeout(err):
		log.Verbose("read timeout: %v", err)
	default:
		log.Warn("read failed: %v", err)
		h.metrics.RecordError(err.Error())
	}
	return errors.Wrap("read", sess.RemoteAddr(), err)
}

// cleanup is the only teardown path for a handled connection.
func (h *Hub) cleanup(sess *session.Session) {
	sess.StopIdle()
	if name := h.reg.Leave(sess); name != "" {
		h.metrics.UserLeft()
		sess.Logger().Info("logged out")
		h.out.Broadcast(protocol.Disconnected(name), nil)
	}
	h.metrics.ConnectionClosed()

	sess.CloseWithNotice("")
	if !sess.WaitWriter(h.flushTimeout()) {
		sess.Logger().Debug("flush timed out")
	}
	sess.Close() //nolint:errcheck
	sess.Logger().Verbose("connection closed")
}

func (h *Hub) evictIdle(sess *session.Session) {
	h.metrics.IdleEviction()
	sess.Logger().Info("idle for %s, disconnecting", h.cfg.IdleTimeout)
	sess.CloseWithNotice(protocol.NoticeIdle)
}

func (h *Hub) flushTimeout() time.Duration {
	if h.cfg.WriteTimeout > 0 {
		return h.cfg.WriteTimeout
	}
	return defaultFlushTimeout
}

// Shutdown refuses new connections, sends the shutdown notice to every
// live session and waits for them to close.  Sessions still open when
// ctx is done are closed forcibly and ctx's error is returned.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.closing.Store(true)

	live := h.reg.Sessions()
	if len(live) > 0 {
		h.logger.Info("shutting down, notifying %d session(s)", len(live))
	}
	for _, sess := range live {
		sess.CloseWithNotice(protocol.NoticeShutdown)
	}

	for i, sess := range live {
		select {
		case <-sess.Done():
		case <-ctx.Done():
			for _, rest := range live[i:] {
				rest.Close() //nolint:errcheck
			}
			h.logger.Warn("grace period over, forced %d session(s) closed", len(live)-i)
			return ctx.Err()
		}
	}
	return nil
}
