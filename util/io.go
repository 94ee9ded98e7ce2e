package util

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// DefaultBufSize is the per-read buffer size for connection read
// loops (4 KiB).
const DefaultBufSize = 4 * 1024

// Relay connects a chat session to a local reader/writer pair
// (normally the terminal).  Server output is copied to out until the
// server hangs up, ctx is done or a copy fails.  When in reaches EOF
// the write side is half-closed and Relay keeps reading until the
// server closes.
//
// A read from in that is still blocked when Relay returns is abandoned;
// its goroutine exits on the next read from in.
func Relay(ctx context.Context, conn net.Conn, in io.Reader, out io.Writer) error {
	down := make(chan error, 1)
	up := make(chan error, 1)

	go func() {
		_, err := io.Copy(out, conn)
		down <- err
	}()
	go func() {
		_, err := io.Copy(conn, in)
		if err == nil {
			closeWrite(conn)
		}
		up <- err
	}()

	var downErr, upErr error
	finished := false
	select {
	case downErr = <-down:
		finished = true
	case upErr = <-up:
		if upErr != nil {
			break
		}
		select {
		case downErr = <-down:
			finished = true
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}

	conn.Close() //nolint:errcheck
	if !finished {
		// Output must be complete before the caller reads out.
		downErr = <-down
	}

	if !IsHarmless(downErr) {
		return downErr
	}
	if !IsHarmless(upErr) {
		return upErr
	}
	return nil
}

// closeWrite half-closes conn when the transport supports it.
func closeWrite(conn net.Conn) {
	if hc, ok := conn.(interface{ CloseWrite() error }); ok {
		hc.CloseWrite() //nolint:errcheck
	}
}

// IsHarmless returns true for errors that are expected when a peer
// hangs up or a connection is closed locally during cleanup.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
