package chat

import (
	"strings"

	"chatd/internal/errors"
	"chatd/internal/metrics"
	"chatd/internal/protocol"
	"chatd/internal/registry"
	"chatd/internal/session"
)

// Dispatcher interprets framed command lines against a session's
// authentication state.  All effects go through Registry and Delivery;
// the dispatcher does no I/O of its own.
type Dispatcher struct {
	reg     *registry.Registry
	out     *Delivery
	metrics *metrics.Collector
}

// NewDispatcher wires a dispatcher to its registry and delivery.
func NewDispatcher(reg *registry.Registry, out *Delivery, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{reg: reg, out: out, metrics: m}
}

// Dispatch runs one trimmed, non-empty line on behalf of sess.
// Protocol errors are answered with "ERR <reason>" to sess only.
func (d *Dispatcher) Dispatch(sess *session.Session, line string) {
	cmd := protocol.ParseCommand(line)
	sess.Logger().Debug("command %s", cmd.Name)

	var err error
	if sess.Authenticated() {
		err = d.dispatchUser(sess, cmd)
	} else {
		err = d.dispatchGuest(sess, cmd)
	}
	if err == nil {
		return
	}

	if reason := errors.Reason(err); reason != "" {
		d.metrics.ProtocolError()
		d.out.Unicast(sess, protocol.Err(reason))
		return
	}
	// Non-protocol failures are internal; the client gets nothing.
	d.metrics.RecordError(err.Error())
	sess.Logger().Error("%s: %v", cmd.Name, err)
}

// dispatchGuest handles commands before LOGIN.
func (d *Dispatcher) dispatchGuest(sess *session.Session, cmd protocol.Command) error {
	switch cmd.Name {
	case protocol.CmdLogin:
		return d.login(sess, cmd)
	case protocol.CmdPing:
		d.out.Unicast(sess, protocol.ReplyPong)
		return nil
	default:
		return errors.ErrNotLoggedIn
	}
}

// dispatchUser handles commands after LOGIN.
func (d *Dispatcher) dispatchUser(sess *session.Session, cmd protocol.Command) error {
	switch cmd.Name {
	case protocol.CmdMsg:
		return d.msg(sess, cmd)
	case protocol.CmdWho:
		return d.who(sess)
	case protocol.CmdDM:
		return d.dm(sess, cmd)
	case protocol.CmdPing:
		d.out.Unicast(sess, protocol.ReplyPong)
		return nil
	default:
		return errors.ErrUnknownCommand
	}
}

func (d *Dispatcher) login(sess *session.Session, cmd protocol.Command) error {
	name := strings.TrimSpace(cmd.Args)
	if name == "" {
		d.metrics.LoginRejected()
		return errors.ErrInvalidUsername
	}
	if err := d.reg.Register(name, sess); err != nil {
		d.metrics.LoginRejected()
		return err
	}

	d.metrics.LoginSucceeded()
	sess.Logger().Info("logged in")
	d.out.Unicast(sess, protocol.ReplyOK)
	d.out.Broadcast(protocol.Connected(name), sess)
	return nil
}

func (d *Dispatcher) msg(sess *session.Session, cmd protocol.Command) error {
	text := protocol.CleanText(cmd.Args)
	if text == "" {
		return nil // empty chat lines are ignored, not rejected
	}
	d.metrics.MessageBroadcast()
	d.out.Broadcast(protocol.Msg(sess.Username(), text), nil)
	return nil
}

func (d *Dispatcher) who(sess *session.Session) error {
	names := d.reg.Usernames()
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = protocol.User(name)
	}
	d.out.UnicastLines(sess, lines)
	return nil
}

func (d *Dispatcher) dm(sess *session.Session, cmd protocol.Command) error {
	target, rest := cmd.Arg()
	text := protocol.CleanText(rest)
	if target == "" || text == "" {
		return errors.ErrInvalidDM
	}

	peer, ok := d.reg.Lookup(target)
	if !ok {
		return errors.ErrUserNotFound
	}

	from := sess.Username()
	d.metrics.DirectMessage()
	d.out.Unicast(peer, protocol.DM(from, text))
	d.out.Unicast(sess, protocol.DMEcho(from, target, text))
	return nil
}
