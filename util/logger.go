// Package util provides low-level helpers shared by all other packages.
package util

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// levelVerbose sits between slog's DEBUG and INFO.
const levelVerbose = slog.LevelDebug + 2

// Logger writes levelled messages through a tint slog handler, with
// optional timestamps and colour.  Child loggers created with [With]
// carry structured attributes (session id, remote address, user).
type Logger struct {
	level      LogLevel
	mu         sync.Mutex
	output     io.Writer
	timestamps bool // if true, prepend HH:MM:SS.mmm timestamps
	color      bool
	attrs      []any
	sl         *slog.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).  Colour is
// enabled when stderr is a terminal.
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     &lockedWriter{w: os.Stderr},
		timestamps: verbosity >= 2,
		color:      IsTerminal(os.Stderr),
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	l.timestamps = on
	l.rebuild()
	l.mu.Unlock()
}

// SetOutput overrides the output writer (default: os.Stderr).  Colour
// is re-evaluated for the new writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.output = &lockedWriter{w: w}
	l.color = IsTerminal(w)
	l.rebuild()
	l.mu.Unlock()
}

// SetColor forces colour on or off.
func (l *Logger) SetColor(on bool) {
	l.mu.Lock()
	l.color = on
	l.rebuild()
	l.mu.Unlock()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// With returns a child logger that adds args (alternating keys and
// values) to every record.  Children share the parent's writer; later
// SetOutput/SetTimestamps calls on the parent do not affect them.
func (l *Logger) With(args ...any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := &Logger{
		level:      l.level,
		output:     l.output,
		timestamps: l.timestamps,
		color:      l.color,
		attrs:      append(append([]any(nil), l.attrs...), args...),
	}
	child.rebuild()
	return child
}

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(slog.LevelInfo, format, args...)
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(slog.LevelWarn, format, args...)
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.write(levelVerbose, format, args...)
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(slog.LevelDebug, format, args...)
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(slog.LevelError, format, args...)
}

func (l *Logger) write(level slog.Level, format string, args ...interface{}) {
	l.mu.Lock()
	sl := l.sl
	l.mu.Unlock()

	ctx := context.Background()
	if !sl.Enabled(ctx, level) {
		return
	}
	sl.Log(ctx, level, fmt.Sprintf(format, args...))
}

// rebuild recreates the slog handler; callers hold l.mu (or own l
// exclusively during construction).
func (l *Logger) rebuild() {
	timestamps, colored := l.timestamps, l.color
	h := tint.NewHandler(l.output, &tint.Options{
		Level:      minLevel(l.level),
		TimeFormat: "15:04:05.000",
		NoColor:    !colored,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) != 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if !timestamps {
					return slog.Attr{}
				}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, levelTag(lvl, colored))
				}
			}
			return a
		},
	})
	l.sl = slog.New(h).With(l.attrs...)
}

// lockedWriter serializes writes from a logger and all its children.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func minLevel(v LogLevel) slog.Level {
	switch {
	case v >= LogDebug:
		return slog.LevelDebug
	case v == LogVerbose:
		return levelVerbose
	case v == LogNormal:
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}

// levelTag renders the three-letter level tag, coloured like the
// broker-style console output when colour is on.
func levelTag(lvl slog.Level, colored bool) string {
	tag, attr := "DBG", color.FgMagenta
	switch {
	case lvl >= slog.LevelError:
		tag, attr = "ERR", color.FgRed
	case lvl >= slog.LevelWarn:
		tag, attr = "WRN", color.FgYellow
	case lvl >= slog.LevelInfo:
		tag, attr = "INF", color.FgBlue
	case lvl >= levelVerbose:
		tag, attr = "VRB", color.FgCyan
	}
	if !colored {
		return tag
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(tag)
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
