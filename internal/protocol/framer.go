// Package protocol implements the chatd line protocol: framing raw
// bytes into command lines, splitting commands from their arguments,
// and building the lines the server sends back.
package protocol

import (
	"bytes"
	"strings"

	"chatd/internal/errors"
)

// Framer splits an incoming byte stream into newline-terminated
// command lines.  It tolerates lines split across reads as well as
// several lines batched into one read, and accepts both "\n" and
// "\r\n" terminators.
//
// A Framer belongs to exactly one connection and is not safe for
// concurrent use.
type Framer struct {
	// MaxLineBytes bounds the unterminated bytes that may be buffered.
	// Zero means unlimited.
	MaxLineBytes int

	buf []byte
}

// NewFramer returns a Framer with the given line limit (0 = unlimited).
func NewFramer(maxLineBytes int) *Framer {
	return &Framer{MaxLineBytes: maxLineBytes}
}

// Feed appends chunk to the receive buffer and returns every complete,
// non-empty line it now contains, in order.  Trailing "\r" and
// surrounding whitespace are removed; lines that are empty after
// trimming are dropped.  Bytes after the last "\n" stay buffered for
// the next call.
//
// If the unterminated remainder grows past MaxLineBytes, Feed returns
// the lines framed so far together with [errors.ErrLineTooLong].
func (f *Framer) Feed(chunk []byte) ([]string, error) {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		raw := f.buf[:idx]
		f.buf = f.buf[idx+1:]

		raw = bytes.TrimSuffix(raw, []byte{'\r'})
		if line := strings.TrimSpace(string(raw)); line != "" {
			lines = append(lines, line)
		}
	}

	// Release the consumed prefix once everything has been framed.
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	}

	if f.MaxLineBytes > 0 && len(f.buf) > f.MaxLineBytes {
		f.buf = nil
		return lines, errors.ErrLineTooLong
	}
	return lines, nil
}

// Buffered returns the number of unterminated bytes held.
func (f *Framer) Buffered() int { return len(f.buf) }

// Reset discards any buffered bytes.
func (f *Framer) Reset() { f.buf = nil }
