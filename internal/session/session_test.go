package session

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/internal/metrics"
	"chatd/internal/protocol"
)

// pipeSession returns a Session on one end of an in-memory pipe and a
// line reader on the other.
func pipeSession(t *testing.T, opts Options) (*Session, net.Conn, *bufio.Reader) {
	t.Helper()
	server, client := net.Pipe()
	s := New(server, opts)
	t.Cleanup(func() {
		s.Close() //nolint:errcheck
		client.Close()
	})
	return s, client, bufio.NewReader(client)
}

func readLine(t *testing.T, conn net.Conn, r *bufio.Reader) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestSession_InitialState(t *testing.T) {
	s, _, _ := pipeSession(t, Options{})

	assert.Equal(t, Unauthenticated, s.State())
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Username())
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "unauthenticated", s.State().String())
}

func TestSession_AuthenticateOnce(t *testing.T) {
	s, _, _ := pipeSession(t, Options{})

	require.NoError(t, s.Authenticate("alice"))
	assert.True(t, s.Authenticated())
	assert.Equal(t, "alice", s.Username())

	assert.Error(t, s.Authenticate("bob"))
	assert.Equal(t, "alice", s.Username(), "username is set exactly once")
}

func TestSession_SendOrdered(t *testing.T) {
	s, client, r := pipeSession(t, Options{})

	assert.True(t, s.Send("OK"))
	assert.True(t, s.Send("PONG"))

	assert.Equal(t, "OK\n", readLine(t, client, r))
	assert.Equal(t, "PONG\n", readLine(t, client, r))
}

func TestSession_SendAfterClose(t *testing.T) {
	s, _, _ := pipeSession(t, Options{})

	require.NoError(t, s.Close())
	assert.False(t, s.Send("late"))
	assert.True(t, s.Closed())

	// Close is idempotent.
	assert.NoError(t, s.Close())
}

func TestSession_StalledPeerIsDisconnected(t *testing.T) {
	m := metrics.New()
	s, _, _ := pipeSession(t, Options{OutboxSize: 1, Metrics: m})

	// Nobody reads the client side, so the writer stalls on the first
	// block and the queue overruns.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			s.Send("MSG x y")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a stalled peer")
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stalled peer was not disconnected")
	}
	assert.False(t, s.Send("MSG x z"))
	assert.Equal(t, int64(1), m.SlowConsumers())
}

func TestSession_SendLinesIsOneEntry(t *testing.T) {
	m := metrics.New()
	s, client, r := pipeSession(t, Options{OutboxSize: 1, Metrics: m})

	lines := make([]string, 50)
	for i := range lines {
		lines[i] = fmt.Sprintf("USER u%02d", i)
	}
	require.True(t, s.SendLines(lines))
	assert.True(t, s.SendLines(nil))

	for _, want := range lines {
		assert.Equal(t, want+"\n", readLine(t, client, r))
	}
	assert.False(t, s.Closed())
	assert.Zero(t, m.SlowConsumers())
}

func TestSession_CloseWithNoticeFlushesFirst(t *testing.T) {
	s, client, r := pipeSession(t, Options{})

	s.Send("MSG alice one")
	s.Send("MSG alice two")
	s.CloseWithNotice(protocol.NoticeShutdown)
	assert.False(t, s.Send("after notice"))

	assert.Equal(t, "MSG alice one\n", readLine(t, client, r))
	assert.Equal(t, "MSG alice two\n", readLine(t, client, r))
	assert.Equal(t, protocol.NoticeShutdown+"\n", readLine(t, client, r))

	client.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, err := r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed after flush")
	}
}

func TestSession_IdleTimeout(t *testing.T) {
	s, client, r := pipeSession(t, Options{IdleTimeout: 50 * time.Millisecond})
	s.ResetIdle()

	assert.Equal(t, protocol.NoticeIdle+"\n", readLine(t, client, r))

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("idle session was not closed")
	}
}

func TestSession_ResetIdlePostpones(t *testing.T) {
	var fired atomic.Int32
	s, _, _ := pipeSession(t, Options{
		IdleTimeout: 80 * time.Millisecond,
		OnIdle:      func(*Session) { fired.Add(1) },
	})

	s.ResetIdle()
	for i := 0; i < 6; i++ {
		time.Sleep(30 * time.Millisecond)
		s.ResetIdle()
	}
	assert.Zero(t, fired.Load(), "active session must not be evicted")

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestSession_TimerAfterCloseIsNoop(t *testing.T) {
	var fired atomic.Int32
	s, _, _ := pipeSession(t, Options{
		IdleTimeout: 20 * time.Millisecond,
		OnIdle:      func(*Session) { fired.Add(1) },
	})

	s.ResetIdle()
	require.NoError(t, s.Close())
	s.ResetIdle() // ignored once closed

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestSession_StaleGenerationIgnored(t *testing.T) {
	var fired atomic.Int32
	s, _, _ := pipeSession(t, Options{
		IdleTimeout: time.Hour,
		OnIdle:      func(*Session) { fired.Add(1) },
	})

	s.ResetIdle()
	s.mu.Lock()
	stale := s.idleGen
	s.mu.Unlock()
	s.ResetIdle()

	s.fireIdle(stale)
	assert.Zero(t, fired.Load(), "a superseded timer must not act")
	assert.False(t, s.IdleExpired())
}

func TestSession_ResetAfterIdleDecisionIsIgnored(t *testing.T) {
	var fired atomic.Int32
	s, _, _ := pipeSession(t, Options{
		IdleTimeout: time.Hour,
		OnIdle:      func(*Session) { fired.Add(1) },
	})

	s.ResetIdle()
	s.mu.Lock()
	gen := s.idleGen
	s.mu.Unlock()

	s.fireIdle(gen)
	require.Equal(t, int32(1), fired.Load())
	assert.True(t, s.IdleExpired())

	// A line framed after the timer committed cannot re-arm it.
	s.ResetIdle()
	s.mu.Lock()
	after, timer := s.idleGen, s.idle
	s.mu.Unlock()
	assert.Equal(t, gen+1, after)
	assert.Nil(t, timer)
	assert.False(t, s.Send("MSG bob late"))

	s.fireIdle(after)
	assert.Equal(t, int32(1), fired.Load(), "eviction runs once")
}

func TestSession_Feed(t *testing.T) {
	s, _, _ := pipeSession(t, Options{})

	lines, err := s.Feed([]byte("LOGIN al"))
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = s.Feed([]byte("ice\r\nPING\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"LOGIN alice", "PING"}, lines)
}

func TestSession_WaitWriter(t *testing.T) {
	s, _, _ := pipeSession(t, Options{})
	require.NoError(t, s.Close())
	assert.True(t, s.WaitWriter(time.Second))
}
