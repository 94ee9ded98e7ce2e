package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so CLI flags, environment loading
// and Default() agree.

const (
	// DefaultPort is the TCP port the server listens on.
	DefaultPort = 4000

	// DefaultHost binds every interface.
	DefaultHost = ""

	// DefaultIdleTimeout disconnects a client after this long without
	// a complete line.  Zero disables the check.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultWriteTimeout bounds a single write to a client.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultGracePeriod is how long shutdown waits for sessions to
	// flush before force-closing them.
	DefaultGracePeriod = 5 * time.Second

	// DefaultMaxLineBytes caps an unterminated command line.  Zero
	// means unlimited.
	DefaultMaxLineBytes = 0

	// DefaultMaxConns limits simultaneous client connections.
	DefaultMaxConns = 10000

	// DefaultOutboxSize is how many queued entries a client may fall
	// behind before it is disconnected as a slow consumer.
	DefaultOutboxSize = 4096

	// DefaultConnTimeout is the client's dial timeout.
	DefaultConnTimeout = 10 * time.Second

	// DefaultRetries is how many times the client re-dials a refused
	// connection.
	DefaultRetries = 3

	// EnvPrefix prefixes every chatd environment variable.
	EnvPrefix = "CHATD_"
)
