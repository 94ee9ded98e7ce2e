// Package session holds the server-side state of one connected chat
// client: its connection, framing buffer, authentication state, idle
// timer and outbound queue.
//
// A Session is created when a connection is accepted and torn down
// exactly once through [Session.Close].  Reads and framing belong to
// the connection's own goroutine; outbound lines go through a queue
// drained by a dedicated writer goroutine, so a slow peer never blocks
// whoever is sending to it.  A peer that falls OutboxSize entries behind
// is disconnected rather than fed a gapped stream.
package session

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chatd/internal/errors"
	"chatd/internal/metrics"
	"chatd/internal/protocol"
	"chatd/util"
)

// DefaultOutboxSize is the pending-entry limit used when
// Options.OutboxSize is zero.
const DefaultOutboxSize = 4096

// State is the authentication state of a Session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options tunes a Session.  The zero value is usable: no idle timeout,
// no write deadline, default outbox, unlimited line length.
type Options struct {
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	OutboxSize   int
	MaxLineBytes int

	// OnIdle runs when the idle timer expires.  By then the session no
	// longer accepts lines or timer resets.  Defaults to closing the
	// session with the inactivity notice.
	OnIdle func(*Session)

	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Session encapsulates the runtime state for a single connection.
type Session struct {
	ID string

	conn         net.Conn
	framer       *protocol.Framer
	logger       atomic.Pointer[util.Logger]
	metrics      *metrics.Collector
	writeTimeout time.Duration

	mu       sync.Mutex
	state    State
	username string

	// idle monitor; idleGen invalidates timers that fire after a reset
	// or after the session is closed.
	idleTimeout time.Duration
	idle        *time.Timer
	idleGen     uint64
	onIdle      func(*Session)
	idleExpired atomic.Bool

	// pending holds queued entries; each entry is written as one block.
	outMu      sync.Mutex
	pending    [][]string
	outboxSize int
	wake       chan struct{}

	notice     string // written once before flush is closed
	flush      chan struct{}
	flushOnce  sync.Once
	closing    atomic.Bool
	done       chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}
}

// New creates a Session bound to conn and starts its writer.
func New(conn net.Conn, opts Options) *Session {
	size := opts.OutboxSize
	if size <= 0 {
		size = DefaultOutboxSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}

	s := &Session{
		ID:           uuid.NewString(),
		conn:         conn,
		framer:       protocol.NewFramer(opts.MaxLineBytes),
		metrics:      opts.Metrics,
		writeTimeout: opts.WriteTimeout,
		idleTimeout:  opts.IdleTimeout,
		onIdle:       opts.OnIdle,
		outboxSize:   size,
		wake:         make(chan struct{}, 1),
		flush:        make(chan struct{}),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
	s.logger.Store(logger.With("session", s.ID[:8], "remote", s.RemoteAddr()))

	go s.writeLoop()
	return s
}

// ── accessors ────────────────────────────────────────────────────────

// Conn returns the underlying connection.
func (s *Session) Conn() net.Conn { return s.conn }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *util.Logger { return s.logger.Load() }

// RemoteAddr returns the peer address as a string.
func (s *Session) RemoteAddr() string {
	if a := s.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether LOGIN has succeeded.
func (s *Session) Authenticated() bool { return s.State() == Authenticated }

// Username returns the name set at LOGIN, or "".
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Authenticate moves the session to the authenticated state under
// name.  The transition is one-way and happens at most once.
func (s *Session) Authenticate(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Authenticated {
		return fmt.Errorf("session already authenticated as %q", s.username)
	}
	s.state = Authenticated
	s.username = name
	s.logger.Store(s.logger.Load().With("user", name))
	return nil
}

// ── inbound ──────────────────────────────────────────────────────────

// Feed frames a freshly read chunk into command lines.  Only the
// connection's read goroutine may call it.
func (s *Session) Feed(chunk []byte) ([]string, error) {
	return s.framer.Feed(chunk)
}

// ── outbound ─────────────────────────────────────────────────────────

// Send queues line (without terminator) for delivery and returns
// whether it was queued.  It never blocks.  A closed session refuses the
// line; a peer already OutboxSize entries behind is disconnected.  The
// result is advisory and may be ignored.
func (s *Session) Send(line string) bool {
	return s.enqueue([]string{line})
}

// SendLines queues lines as a single entry.  They are written
// contiguously, in order, and count once against the outbox limit.
func (s *Session) SendLines(lines []string) bool {
	if len(lines) == 0 {
		return true
	}
	return s.enqueue(lines)
}

func (s *Session) enqueue(lines []string) bool {
	if s.closing.Load() || s.isClosed() {
		return false
	}
	s.outMu.Lock()
	if len(s.pending) >= s.outboxSize {
		s.outMu.Unlock()
		s.metrics.SlowConsumer()
		s.Logger().Warn("peer is %d entries behind, disconnecting", s.outboxSize)
		s.Close() //nolint:errcheck
		return false
	}
	s.pending = append(s.pending, lines)
	s.outMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case <-s.wake:
			if err := s.writePending(); err != nil {
				s.logWriteError(err)
				s.Close() //nolint:errcheck
				return
			}
		case <-s.flush:
			s.drain()
			s.Close() //nolint:errcheck
			return
		case <-s.done:
			return
		}
	}
}

// writePending takes every queued entry and writes them as one block,
// repeating until the queue is empty.
func (s *Session) writePending() error {
	var buf bytes.Buffer
	for {
		s.outMu.Lock()
		batch := s.pending
		s.pending = nil
		s.outMu.Unlock()
		if len(batch) == 0 {
			return nil
		}

		buf.Reset()
		for _, entry := range batch {
			for _, line := range entry {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
		}
		if err := s.write(buf.Bytes()); err != nil {
			return err
		}
	}
}

// drain writes whatever is still queued, then the closing notice.
func (s *Session) drain() {
	if err := s.writePending(); err != nil {
		s.logWriteError(err)
		return
	}
	if s.notice != "" {
		if err := s.write([]byte(s.notice + "\n")); err != nil {
			s.logWriteError(err)
		}
	}
}

func (s *Session) write(p []byte) error {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)) //nolint:errcheck
	}
	n, err := s.conn.Write(p)
	s.metrics.BytesSent(int64(n))
	if err != nil {
		return errors.Wrap("write", s.RemoteAddr(), err)
	}
	return nil
}

func (s *Session) logWriteError(err error) {
	if util.IsHarmless(err) {
		s.Logger().Debug("write after peer hang-up: %v", err)
		return
	}
	s.Logger().Verbose("write failed: %v", err)
}

// ── idle monitor ─────────────────────────────────────────────────────

// ResetIdle (re)arms the idle timer.  Call it on accept and after every
// framed line.  A no-op when no idle timeout is configured, the session
// is closing or the timer has already expired.
func (s *Session) ResetIdle() {
	if s.idleTimeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() || s.closing.Load() {
		return
	}
	s.idleGen++
	gen := s.idleGen
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idle = time.AfterFunc(s.idleTimeout, func() { s.fireIdle(gen) })
}

// StopIdle cancels the idle timer.  A timer that already fired but has
// not yet acted becomes a no-op.
func (s *Session) StopIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleGen++
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
}

// fireIdle commits to the eviction under mu: once it has decided, the
// session stops taking lines and later resets are ignored.
func (s *Session) fireIdle(gen uint64) {
	s.mu.Lock()
	if gen != s.idleGen || s.isClosed() || s.closing.Load() {
		s.mu.Unlock()
		return
	}
	s.idleGen++
	s.idle = nil
	s.idleExpired.Store(true)
	s.closing.Store(true)
	s.mu.Unlock()

	if s.onIdle != nil {
		s.onIdle(s)
		return
	}
	s.CloseWithNotice(protocol.NoticeIdle)
}

// ── teardown ─────────────────────────────────────────────────────────

// CloseWithNotice stops accepting new lines, flushes the queue, writes
// notice last (if non-empty) and closes the connection.  It returns
// immediately; the writer goroutine does the flushing.
func (s *Session) CloseWithNotice(notice string) {
	s.flushOnce.Do(func() {
		s.notice = notice
		s.closing.Store(true)
		close(s.flush)
	})
}

// Close tears the connection down immediately, unblocking any pending
// read or write.  It is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.StopIdle()
		s.closing.Store(true)
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// IdleExpired reports whether the session was ended by its idle timer.
func (s *Session) IdleExpired() bool { return s.idleExpired.Load() }

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Closed reports whether Close has run.
func (s *Session) Closed() bool { return s.isClosed() }

// WaitWriter blocks until the writer goroutine has exited or timeout
// elapses, and reports whether it exited.
func (s *Session) WaitWriter(timeout time.Duration) bool {
	select {
	case <-s.writerDone:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Session) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
