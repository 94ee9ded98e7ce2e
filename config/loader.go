package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the CHATD_ prefix, except the
// conventional PORT and NO_COLOR.  Boolean values accept "1", "true",
// "yes" (case-insensitive).  Durations accept Go syntax ("90s") or a
// bare number of seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty,
// well-formed values override the existing value.  Call it BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvPrefix + "HOST"); ok {
		cfg.Host = v
	}
	// CHATD_PORT beats the generic PORT.
	if v := envInt("PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt(EnvPrefix + "PORT"); v > 0 {
		cfg.Port = v
	}
	if v, ok := envDuration(EnvPrefix + "IDLE_TIMEOUT"); ok {
		cfg.IdleTimeout = v
	}
	if v, ok := envDuration(EnvPrefix + "WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = v
	}
	if v, ok := envDuration(EnvPrefix + "GRACE_PERIOD"); ok {
		cfg.GracePeriod = v
	}
	if v := envInt(EnvPrefix + "MAX_LINE"); v > 0 {
		cfg.MaxLineBytes = v
	}
	if v := envInt(EnvPrefix + "MAX_CONNS"); v > 0 {
		cfg.MaxConns = v
	}
	if v := envInt(EnvPrefix + "OUTBOX"); v > 0 {
		cfg.OutboxSize = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "GREETING"); ok {
		cfg.Greeting = v
	}

	// Client
	if v := os.Getenv(EnvPrefix + "CONNECT"); v != "" {
		cfg.Connect = v
	}
	if v, ok := envDuration(EnvPrefix + "TIMEOUT"); ok {
		cfg.Timeout = v
	}
	if v := envInt(EnvPrefix + "RETRIES"); v > 0 {
		cfg.Retries = v
	}

	// Output
	if envBool(EnvPrefix+"NO_COLOR") || os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
	if v := envInt(EnvPrefix + "VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return secondsDuration(sec), sec >= 0
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
