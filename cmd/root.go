// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"chatd/config"
	"chatd/internal/core"
	"chatd/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X chatd/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout and stderr are swapped in tests.
var (
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// Execute parses args and runs the chat server, or the client when
// --connect is given.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	var cli cliFlags
	fs := newFlagSet(cfg, &cli)

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cli.showHelp {
		printUsage(fs)
		return nil
	}
	if cli.showVersion {
		fmt.Fprintf(stdout, "chatd %s\n", version)
		return nil
	}

	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(cli.timeoutSec) * time.Second
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cli.dryRun {
		fmt.Fprintln(stderr, "configuration OK")
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(loggerVerbosity(cfg))
	if cfg.NoColor {
		logger.SetColor(false)
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// cliFlags holds flags that steer Execute rather than configure chatd.
type cliFlags struct {
	timeoutSec  int
	showVersion bool
	showHelp    bool
	dryRun      bool
}

// newFlagSet binds every flag to cfg, using cfg's current values
// (defaults overlaid with the environment) as flag defaults.
func newFlagSet(cfg *config.Config, cli *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("chatd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── server ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Host, "bind", "b", cfg.Host, "Address to bind (default all interfaces)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "TCP port to listen on")
	fs.DurationVarP(&cfg.IdleTimeout, "idle-timeout", "i", cfg.IdleTimeout, "Disconnect clients idle this long (0 disables)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Deadline for a single write to a client")
	fs.DurationVar(&cfg.GracePeriod, "grace-period", cfg.GracePeriod, "How long shutdown waits for clients to flush")
	fs.IntVar(&cfg.MaxLineBytes, "max-line", cfg.MaxLineBytes, "Maximum command line length in bytes (0 = unlimited)")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Maximum simultaneous connections")
	fs.IntVar(&cfg.OutboxSize, "outbox", cfg.OutboxSize, "Queued entries a client may fall behind before it is disconnected")
	fs.StringVar(&cfg.Greeting, "greeting", cfg.Greeting, "Line sent to new connections (empty disables)")

	// ── client ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Connect, "connect", "c", cfg.Connect, "Connect to a chat server at host:port")

	cli.timeoutSec = int(cfg.Timeout / time.Second)
	fs.IntVarP(&cli.timeoutSec, "timeout", "w", cli.timeoutSec, "Dial timeout in seconds")
	fs.IntVarP(&cfg.Retries, "retries", "r", cfg.Retries, "Re-dial attempts when the server refuses")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable coloured output")
	envVerbose := cfg.Verbose
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	cfg.Verbose = envVerbose // CountVarP zeroes its target; -v adds to the environment's level

	fs.BoolVar(&cli.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&cli.dryRun, "dry-run", false, "Validate the configuration and exit")
	fs.BoolVarP(&cli.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	return fs
}

// parsePositional applies an optional trailing port.  --port beats the
// positional, which beats the environment.
func parsePositional(cfg *config.Config, fs *flag.FlagSet, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil
	case 1:
		if cfg.ClientMode() {
			return fmt.Errorf("unexpected argument %q in client mode", remaining[0])
		}
		port, err := config.ParsePort(remaining[0])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		if !fs.Changed("port") {
			cfg.Port = port
		}
		return nil
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
}

// loggerVerbosity keeps the server's lifecycle lines visible by default
// while the interactive client stays quiet unless asked.
func loggerVerbosity(cfg *config.Config) int {
	if cfg.ClientMode() || cfg.Verbose > 0 {
		return cfg.Verbose
	}
	return 1
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `chatd – line-oriented TCP chat server v%s

Usage:
  chatd [options] [port]                      Serve (default port %d)
  chatd -c <host:port> [options]              Connect as a client

Options:
`, version, config.DefaultPort)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Protocol:
  LOGIN <name>   PING   MSG <text>   WHO   DM <user> <text>

Environment:
  CHATD_PORT, PORT, CHATD_HOST, CHATD_IDLE_TIMEOUT, CHATD_CONNECT,
  CHATD_NO_COLOR, NO_COLOR, CHATD_VERBOSE

Examples:
  chatd                                       Listen on :%d
  chatd 5000                                  Listen on :5000
  chatd -b 127.0.0.1 -i 5m -vv                Local only, 5 minute idle
  chatd -c localhost:%d                     Chat from this terminal
  printf 'LOGIN bot\nMSG hi\n' | chatd -c host:%d
`, config.DefaultPort, config.DefaultPort, config.DefaultPort)
}
