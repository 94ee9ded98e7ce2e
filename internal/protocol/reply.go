package protocol

// Fixed server lines.
const (
	ReplyOK   = "OK"
	ReplyPong = "PONG"

	NoticeIdle     = "INFO disconnected due to inactivity"
	NoticeShutdown = "INFO server-shutdown"

	// DefaultGreeting is sent to every new connection.
	DefaultGreeting = "Welcome! Please login with: LOGIN <username>"
)

// Info builds "INFO <text>".
func Info(text string) string { return "INFO " + text }

// Connected builds the notice broadcast when name logs in.
func Connected(name string) string { return Info(name + " connected") }

// Disconnected builds the notice broadcast when name leaves.
func Disconnected(name string) string { return Info(name + " disconnected") }

// User builds one line of a WHO listing.
func User(name string) string { return "USER " + name }

// Msg builds a broadcast chat line.
func Msg(from, text string) string { return "MSG " + from + " " + text }

// DM builds the line delivered to the recipient of a direct message.
func DM(from, text string) string { return "DM " + from + " " + text }

// DMEcho builds the confirmation returned to the sender of a direct
// message.  Unlike [DM] it names the recipient.
func DMEcho(from, to, text string) string {
	return "DM " + from + " -> " + to + " " + text
}

// Err builds "ERR <reason>".
func Err(reason string) string { return "ERR " + reason }
