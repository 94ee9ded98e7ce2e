// Package registry is the process-wide directory of live chat sessions:
// the set of every connected session, and the username → session map
// for the authenticated ones.
//
// All membership changes and snapshots are serialized by one mutex;
// username uniqueness is the invariant it protects.
package registry

import (
	"fmt"
	"sync"

	"chatd/internal/errors"
	"chatd/internal/session"
)

// Registry tracks live sessions.  It holds non-owning references: the
// connection's lifetime governs the session's, and the owner must call
// [Registry.Leave] when the connection ends.
type Registry struct {
	mu    sync.Mutex
	users map[string]*session.Session
	names []string // registration order, for WHO
	live  map[*session.Session]struct{}
	order []*session.Session // join order, for broadcast snapshots
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		users: make(map[string]*session.Session),
		live:  make(map[*session.Session]struct{}),
	}
}

// ── live set ─────────────────────────────────────────────────────────

// Join adds sess to the live set.  Joining twice is a no-op.
func (r *Registry) Join(sess *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[sess]; ok {
		return
	}
	r.live[sess] = struct{}{}
	r.order = append(r.order, sess)
}

// Leave removes sess from the live set and unregisters its username.
// It returns the freed username, or "" if sess was not registered or
// had already left.  Leave is idempotent.
func (r *Registry) Leave(sess *session.Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[sess]; ok {
		delete(r.live, sess)
		r.order = removeSession(r.order, sess)
	}
	return r.unregisterLocked(sess)
}

// Sessions returns a snapshot of every live session, authenticated or
// not, in join order.
func (r *Registry) Sessions() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session.Session, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// ── usernames ────────────────────────────────────────────────────────

// Register binds username to sess and marks sess authenticated, as
// one atomic step.  It fails with [errors.ErrUsernameTaken] if the
// name is in use, and with [errors.ErrInvalidUsername] if it is empty.
func (r *Registry) Register(username string, sess *session.Session) error {
	if username == "" {
		return errors.ErrInvalidUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.users[username]; taken {
		return fmt.Errorf("register %q: %w", username, errors.ErrUsernameTaken)
	}
	if err := sess.Authenticate(username); err != nil {
		return fmt.Errorf("register %q: %w", username, err)
	}
	r.users[username] = sess
	r.names = append(r.names, username)
	return nil
}

// Unregister removes sess's username mapping if it has one and returns
// the freed name.  Safe to call any number of times.
func (r *Registry) Unregister(sess *session.Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(sess)
}

func (r *Registry) unregisterLocked(sess *session.Session) string {
	name := sess.Username()
	if name == "" {
		return ""
	}
	if cur, ok := r.users[name]; !ok || cur != sess {
		return ""
	}
	delete(r.users, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return name
}

// Lookup returns the session registered under username.
func (r *Registry) Lookup(username string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.users[username]
	return sess, ok
}

// Usernames returns every registered username in registration order.
func (r *Registry) Usernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func removeSession(list []*session.Session, sess *session.Session) []*session.Session {
	for i, s := range list {
		if s == sess {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
