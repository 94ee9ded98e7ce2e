package chat

import (
	"chatd/internal/metrics"
	"chatd/internal/registry"
	"chatd/internal/session"
)

// Delivery sends server lines to sessions on a best-effort basis.
//
// This is the fault-isolation boundary of the server: a failed or
// refused send is never reported as an error to the caller, and one
// bad recipient never affects the others.  The boolean and count
// results are informational and may be discarded.
type Delivery struct {
	reg     *registry.Registry
	metrics *metrics.Collector
}

// NewDelivery returns a Delivery that broadcasts over reg's live set.
func NewDelivery(reg *registry.Registry, m *metrics.Collector) *Delivery {
	return &Delivery{reg: reg, metrics: m}
}

// Unicast queues text for sess and reports whether it was queued.
// The line terminator is added by the session writer.
func (d *Delivery) Unicast(sess *session.Session, text string) bool {
	if sess == nil {
		return false
	}
	return sess.Send(text)
}

// UnicastLines queues lines for sess as one contiguous block.
func (d *Delivery) UnicastLines(sess *session.Session, lines []string) bool {
	if sess == nil {
		return false
	}
	return sess.SendLines(lines)
}

// Broadcast queues text for every live session except except (which
// may be nil) and returns how many accepted it.  Recipients come from
// a registry snapshot; a session that disconnects mid-broadcast simply
// refuses the line.
func (d *Delivery) Broadcast(text string, except *session.Session) int {
	delivered := 0
	for _, sess := range d.reg.Sessions() {
		if sess == except {
			continue
		}
		if d.Unicast(sess, text) {
			delivered++
		}
	}
	return delivered
}
