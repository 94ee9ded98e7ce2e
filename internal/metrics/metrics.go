// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a chatd server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a chatd server.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	usersOnline       atomic.Int64
	loginsTotal       atomic.Int64
	loginsRejected    atomic.Int64
	messagesTotal     atomic.Int64
	directTotal       atomic.Int64
	protocolErrors    atomic.Int64
	idleEvictions     atomic.Int64
	slowConsumers     atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// IdleEviction records a session closed by the idle monitor.
func (c *Collector) IdleEviction() {
	if c == nil {
		return
	}
	c.idleEvictions.Add(1)
}

// IdleEvictions returns the number of idle disconnects.
func (c *Collector) IdleEvictions() int64 {
	if c == nil {
		return 0
	}
	return c.idleEvictions.Load()
}

// ── Chat metrics ─────────────────────────────────────────────────────

// LoginSucceeded records a successful LOGIN.
func (c *Collector) LoginSucceeded() {
	if c == nil {
		return
	}
	c.loginsTotal.Add(1)
	c.usersOnline.Add(1)
}

// LoginRejected records a LOGIN refused for a bad or taken name.
func (c *Collector) LoginRejected() {
	if c == nil {
		return
	}
	c.loginsRejected.Add(1)
}

// UserLeft decrements the online-user gauge.
func (c *Collector) UserLeft() {
	if c == nil {
		return
	}
	c.usersOnline.Add(-1)
}

// UsersOnline returns the number of authenticated sessions.
func (c *Collector) UsersOnline() int64 {
	if c == nil {
		return 0
	}
	return c.usersOnline.Load()
}

// MessageBroadcast records one MSG fan-out.
func (c *Collector) MessageBroadcast() {
	if c == nil {
		return
	}
	c.messagesTotal.Add(1)
}

// Messages returns the number of MSG broadcasts.
func (c *Collector) Messages() int64 {
	if c == nil {
		return 0
	}
	return c.messagesTotal.Load()
}

// DirectMessage records one delivered DM.
func (c *Collector) DirectMessage() {
	if c == nil {
		return
	}
	c.directTotal.Add(1)
}

// DirectMessages returns the number of delivered DMs.
func (c *Collector) DirectMessages() int64 {
	if c == nil {
		return 0
	}
	return c.directTotal.Load()
}

// ProtocolError records an ERR reply.
func (c *Collector) ProtocolError() {
	if c == nil {
		return
	}
	c.protocolErrors.Add(1)
}

// ProtocolErrors returns the number of ERR replies sent.
func (c *Collector) ProtocolErrors() int64 {
	if c == nil {
		return 0
	}
	return c.protocolErrors.Load()
}

// SlowConsumer records a session disconnected for falling too far
// behind on its outbound queue.
func (c *Collector) SlowConsumer() {
	if c == nil {
		return
	}
	c.slowConsumers.Add(1)
}

// SlowConsumers returns the number of sessions disconnected for lag.
func (c *Collector) SlowConsumers() int64 {
	if c == nil {
		return 0
	}
	return c.slowConsumers.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	UsersOnline       int64  `json:"users_online"`
	LoginsTotal       int64  `json:"logins_total"`
	LoginsRejected    int64  `json:"logins_rejected"`
	MessagesTotal     int64  `json:"messages_total"`
	DirectTotal       int64  `json:"direct_messages_total"`
	ProtocolErrors    int64  `json:"protocol_errors"`
	IdleEvictions     int64  `json:"idle_evictions"`
	SlowConsumers     int64  `json:"slow_consumers"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		UsersOnline:       c.usersOnline.Load(),
		LoginsTotal:       c.loginsTotal.Load(),
		LoginsRejected:    c.loginsRejected.Load(),
		MessagesTotal:     c.messagesTotal.Load(),
		DirectTotal:       c.directTotal.Load(),
		ProtocolErrors:    c.protocolErrors.Load(),
		IdleEvictions:     c.idleEvictions.Load(),
		SlowConsumers:     c.slowConsumers.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
