package errors

import (
	"fmt"
	"io"
	"net"
	"os"
	"testing"
)

func TestProtocolError_Reason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrInvalidUsername, "invalid-username"},
		{ErrUsernameTaken, "username-taken"},
		{ErrNotLoggedIn, "not-logged-in"},
		{ErrInvalidDM, "invalid-dm"},
		{ErrUserNotFound, "user-not-found"},
		{ErrUnknownCommand, "unknown-command"},
		{fmt.Errorf("register alice: %w", ErrUsernameTaken), "username-taken"},
		{io.EOF, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.err), func(t *testing.T) {
			if got := Reason(tt.err); got != tt.want {
				t.Errorf("Reason() = %q, want %q", got, tt.want)
			}
			if got := IsProtocol(tt.err); got != (tt.want != "") {
				t.Errorf("IsProtocol() = %v", got)
			}
		})
	}
}

func TestProtocolError_Wrapped(t *testing.T) {
	err := fmt.Errorf("login: %w", ErrUsernameTaken)
	if !Is(err, ErrUsernameTaken) {
		t.Error("wrapped sentinel should match with Is")
	}
	if Is(err, ErrUserNotFound) {
		t.Error("distinct sentinels must not match")
	}
}

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "example.com:4000", Err: io.EOF, Retryable: true},
			want: "dial example.com:4000: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "listen", Addr: ":4000", Err: fmt.Errorf("bind failed")},
			want: "listen :4000: bind failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "read", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --port=99999: out of range 1-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "connect",
				Message: "expected host:port",
			},
			want: "config: --connect: expected host:port",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("write", "10.0.0.1:4000", inner)

	if err.Op != "write" || err.Addr != "10.0.0.1:4000" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
	if err.Retryable {
		t.Error("plain error should not be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: false}, false},
		{"plain error", fmt.Errorf("boom"), false},
		{"dial op error", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("refused")}, true},
		{"read op error", &net.OpError{Op: "read", Net: "tcp", Err: fmt.Errorf("reset")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(ErrIdleTimeout) {
		t.Error("idle timeout should be a timeout")
	}
	if !IsTimeout(Wrap("read", "peer", ErrIdleTimeout)) {
		t.Error("wrapped idle timeout should be a timeout")
	}
	if !IsTimeout(&net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}) {
		t.Error("deadline exceeded should be a timeout")
	}
	if IsTimeout(io.EOF) {
		t.Error("EOF is not a timeout")
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrInvalidUsername, ErrUsernameTaken, ErrNotLoggedIn,
		ErrInvalidDM, ErrUserNotFound, ErrUnknownCommand,
		ErrLineTooLong, ErrIdleTimeout, ErrShutdown,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
