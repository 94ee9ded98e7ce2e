// Package errors provides domain-specific error types for chatd.
//
// Protocol errors carry the short reason string that goes on the wire
// after "ERR".  Network and configuration errors carry structured
// context (operation, address, retryability, offending field) that
// helps callers decide how to handle failures.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Protocol errors ──────────────────────────────────────────────────

// ProtocolError is a client-facing failure reported as "ERR <reason>".
// It is never fatal to the connection.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Reason }

// Sentinel protocol errors.  Compare with [Is]; render with [Reason].
var (
	ErrInvalidUsername = &ProtocolError{Reason: "invalid-username"}
	ErrUsernameTaken   = &ProtocolError{Reason: "username-taken"}
	ErrNotLoggedIn     = &ProtocolError{Reason: "not-logged-in"}
	ErrInvalidDM       = &ProtocolError{Reason: "invalid-dm"}
	ErrUserNotFound    = &ProtocolError{Reason: "user-not-found"}
	ErrUnknownCommand  = &ProtocolError{Reason: "unknown-command"}
)

// ── Session errors ───────────────────────────────────────────────────

var (
	ErrLineTooLong = errors.New("line exceeds maximum length")
	ErrIdleTimeout = errors.New("idle timeout")
	ErrShutdown    = errors.New("server shutting down")
)

// Reason returns the wire reason for err, or "" if err is not a
// protocol error.
func Reason(err error) string {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}

// IsProtocol reports whether err should be answered with an ERR line.
func IsProtocol(err error) bool {
	return Reason(err) != ""
}

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTimeout reports whether err is a deadline or timeout failure.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrIdleTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return true // refused / unreachable: the server may come up
		}
		return opErr.Timeout()
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use chatd/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
