package core

import (
	"os"

	"chatd/config"
	"chatd/internal/capability"
	"chatd/internal/chat"
	"chatd/internal/metrics"
	"chatd/internal/retry"
	"chatd/internal/transport"
	"chatd/util"
)

// Build constructs the appropriate Mode from the given configuration:
// ConnectMode when a server address is given, ServeMode otherwise.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.ClientMode() {
		return buildConnect(cfg, logger), nil
	}
	return buildServe(cfg, logger), nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger) Mode {
	return &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: cfg.Timeout},
		Backoff: retry.Attempts(cfg.Retries),
		Capability: &capability.Relay{
			Color: !cfg.NoColor && util.IsTerminal(os.Stdout),
		},
		Address: cfg.Connect,
		Logger:  logger,
	}
}

func buildServe(cfg *config.Config, logger *util.Logger) Mode {
	m := metrics.New()
	hub := chat.NewHub(chat.Config{
		IdleTimeout:  cfg.IdleTimeout,
		WriteTimeout: cfg.WriteTimeout,
		OutboxSize:   cfg.OutboxSize,
		MaxLineBytes: cfg.MaxLineBytes,
		Greeting:     cfg.Greeting,
	}, m, logger)

	return &ServeMode{
		Address:     cfg.ListenAddr(),
		MaxConns:    cfg.MaxConns,
		GracePeriod: cfg.GracePeriod,
		Handler:     hub,
		Metrics:     m,
		Logger:      logger,
	}
}
