package capability

import (
	"bytes"
	"context"
	"hash/fnv"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"chatd/util"
)

// Relay connects the local terminal to a chat server: stdin lines go
// out as commands, server lines are printed to stdout, colourised by
// kind when Color is set.
type Relay struct {
	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Color  bool
}

func (r *Relay) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

func (r *Relay) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

// Handle shuttles lines between conn and the local I/O endpoints until
// one side closes or the context is cancelled.
func (r *Relay) Handle(ctx context.Context, conn net.Conn) error {
	if !r.Color {
		return util.Relay(ctx, conn, r.stdin(), r.stdout())
	}
	w := &lineColorizer{out: r.stdout()}
	err := util.Relay(ctx, conn, r.stdin(), w)
	w.Flush() //nolint:errcheck
	return err
}

// ── colouring ────────────────────────────────────────────────────────

var (
	okColor   = color.New(color.FgGreen)
	infoColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	userColor = color.New(color.FgBlue)
	dmColor   = color.New(color.FgMagenta)

	senderPalette = []*color.Color{
		color.New(color.FgCyan, color.Bold),
		color.New(color.FgGreen, color.Bold),
		color.New(color.FgYellow, color.Bold),
		color.New(color.FgBlue, color.Bold),
		color.New(color.FgMagenta, color.Bold),
		color.New(color.FgHiRed, color.Bold),
	}
)

func init() {
	// Colour is opted into per Relay; fatih/color's global TTY check
	// must not strip it.
	for _, c := range append([]*color.Color{okColor, infoColor, errColor, userColor, dmColor}, senderPalette...) {
		c.EnableColor()
	}
}

// ColorLine renders one server line (without terminator) for a
// terminal.
func ColorLine(line string) string {
	kind, rest, _ := strings.Cut(line, " ")
	switch kind {
	case "OK", "PONG":
		return okColor.Sprint(line)
	case "INFO":
		return infoColor.Sprint(line)
	case "ERR":
		return errColor.Sprint(line)
	case "USER":
		return userColor.Sprint(kind) + " " + senderColor(rest).Sprint(rest)
	case "MSG":
		from, text, _ := strings.Cut(rest, " ")
		return senderColor(from).Sprint(from) + ": " + text
	case "DM":
		from, text, _ := strings.Cut(rest, " ")
		return dmColor.Sprint("DM ") + senderColor(from).Sprint(from) + " " + dmColor.Sprint(text)
	default:
		return line
	}
}

// senderColor picks a stable colour for name.
func senderColor(name string) *color.Color {
	h := fnv.New32a()
	h.Write([]byte(name)) //nolint:errcheck
	return senderPalette[h.Sum32()%uint32(len(senderPalette))]
}

// lineColorizer rewrites complete lines through ColorLine and holds a
// trailing partial line until its newline arrives.
type lineColorizer struct {
	mu  sync.Mutex
	out io.Writer
	buf []byte
}

func (w *lineColorizer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(string(w.buf[:idx]), "\r")
		w.buf = w.buf[idx+1:]
		if _, err := io.WriteString(w.out, ColorLine(line)+"\n"); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush writes any unterminated remainder as-is.
func (w *lineColorizer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) == 0 {
		return nil
	}
	_, err := w.out.Write(w.buf)
	w.buf = nil
	return err
}
