// Package config defines the runtime configuration for chatd and the
// rules that make a configuration valid.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chatd/internal/errors"
	"chatd/internal/protocol"
	"chatd/util"
)

// Config holds every tuneable for a chatd process, server or client.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Host         string // bind address, "" = all interfaces
	Port         int
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	GracePeriod  time.Duration
	MaxLineBytes int
	MaxConns     int
	OutboxSize   int
	Greeting     string

	// ── Client ───────────────────────────────────────────────────────
	Connect string // host:port; non-empty selects client mode
	Timeout time.Duration
	Retries int

	// ── Output ───────────────────────────────────────────────────────
	NoColor bool
	Verbose int
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		IdleTimeout:  DefaultIdleTimeout,
		WriteTimeout: DefaultWriteTimeout,
		GracePeriod:  DefaultGracePeriod,
		MaxLineBytes: DefaultMaxLineBytes,
		MaxConns:     DefaultMaxConns,
		OutboxSize:   DefaultOutboxSize,
		Greeting:     protocol.DefaultGreeting,
		Timeout:      DefaultConnTimeout,
		Retries:      DefaultRetries,
	}
}

// ClientMode reports whether the configuration dials a server instead
// of serving.
func (c *Config) ClientMode() bool { return c.Connect != "" }

// ListenAddr returns the server's "host:port".
func (c *Config) ListenAddr() string { return util.FormatAddr(c.Host, c.Port) }

// ParsePort accepts a decimal TCP port in 1-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Failures are *errors.ConfigError values carrying a hint.
func (c *Config) Validate() error {
	if c.ClientMode() {
		return c.validateClient()
	}
	return c.validateServer()
}

func (c *Config) validateServer() error {
	if c.Port < 1 || c.Port > 65535 {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    fmt.Sprintf("omit it to use the default %d", DefaultPort),
		}
	}
	if c.IdleTimeout < 0 {
		return &errors.ConfigError{
			Field:   "idle-timeout",
			Value:   c.IdleTimeout,
			Message: "must not be negative",
			Hint:    "use 0 to disable the idle check",
		}
	}
	if c.WriteTimeout < 0 {
		return &errors.ConfigError{Field: "write-timeout", Value: c.WriteTimeout, Message: "must not be negative"}
	}
	if c.GracePeriod < 0 {
		return &errors.ConfigError{Field: "grace-period", Value: c.GracePeriod, Message: "must not be negative"}
	}
	if c.MaxLineBytes < 0 {
		return &errors.ConfigError{
			Field:   "max-line",
			Value:   c.MaxLineBytes,
			Message: "must not be negative",
			Hint:    "use 0 for no limit",
		}
	}
	if c.MaxConns < 1 {
		return &errors.ConfigError{
			Field:   "max-conns",
			Value:   c.MaxConns,
			Message: "must be at least 1",
			Hint:    fmt.Sprintf("the default is %d", DefaultMaxConns),
		}
	}
	if c.OutboxSize < 1 {
		return &errors.ConfigError{
			Field:   "outbox",
			Value:   c.OutboxSize,
			Message: "must be at least 1",
			Hint:    fmt.Sprintf("the default is %d", DefaultOutboxSize),
		}
	}
	return nil
}

func (c *Config) validateClient() error {
	if _, _, err := util.SplitAddr(c.Connect); err != nil {
		return &errors.ConfigError{
			Field:   "connect",
			Value:   c.Connect,
			Message: "expected host:port",
			Hint:    "for example: chatd -c localhost:4000",
		}
	}
	if c.Timeout < 0 {
		return &errors.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.Retries < 0 {
		return &errors.ConfigError{
			Field:   "retries",
			Value:   c.Retries,
			Message: "must not be negative",
			Hint:    "use 0 to dial only once",
		}
	}
	return nil
}
