package capability

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer accepts one connection and echoes it back.
func echoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) //nolint:errcheck
	}()
	return ln.Addr().String()
}

func TestRelay_Plain(t *testing.T) {
	conn, err := net.Dial("tcp", echoServer(t))
	require.NoError(t, err)

	output := &bytes.Buffer{}
	relay := &Relay{Stdin: strings.NewReader("MSG hello relay\n"), Stdout: output}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, relay.Handle(ctx, conn))
	assert.Equal(t, "MSG hello relay\n", output.String())
}

func TestRelay_Colored(t *testing.T) {
	conn, err := net.Dial("tcp", echoServer(t))
	require.NoError(t, err)

	output := &bytes.Buffer{}
	relay := &Relay{Stdin: strings.NewReader("ERR user-not-found\n"), Stdout: output, Color: true}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, relay.Handle(ctx, conn))
	assert.Contains(t, output.String(), "\x1b[")
	assert.Contains(t, output.String(), "ERR user-not-found")
	assert.True(t, strings.HasSuffix(output.String(), "\n"))
}

func TestColorLine(t *testing.T) {
	tests := []struct {
		line    string
		contain []string
		styled  bool
	}{
		{"OK", []string{"OK"}, true},
		{"INFO bob connected", []string{"INFO bob connected"}, true},
		{"ERR invalid-dm", []string{"ERR invalid-dm"}, true},
		{"MSG alice hi there", []string{"alice", ": hi there"}, true},
		{"DM alice psst", []string{"alice", "psst"}, true},
		{"USER bob", []string{"USER", "bob"}, true},
		{"Welcome! Please login", []string{"Welcome! Please login"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ColorLine(tt.line)
			for _, s := range tt.contain {
				assert.Contains(t, got, s)
			}
			assert.Equal(t, tt.styled, strings.Contains(got, "\x1b["))
		})
	}
}

func TestSenderColorStable(t *testing.T) {
	assert.Same(t, senderColor("alice"), senderColor("alice"))
}

func TestLineColorizer_SplitWrites(t *testing.T) {
	out := &bytes.Buffer{}
	w := &lineColorizer{out: out}

	w.Write([]byte("PO")) //nolint:errcheck
	assert.Empty(t, out.String(), "partial line is held back")
	w.Write([]byte("NG\r\nOK")) //nolint:errcheck
	assert.Equal(t, okColor.Sprint("PONG")+"\n", out.String())

	require.NoError(t, w.Flush())
	assert.True(t, strings.HasSuffix(out.String(), "OK"))
}
