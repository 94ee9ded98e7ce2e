package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv_Host(t *testing.T) {
	t.Setenv("CHATD_HOST", "127.0.0.1")
	cfg := Default()
	LoadFromEnv(cfg)
	assert.Equal(t, "127.0.0.1", cfg.Host)
}

func TestLoadFromEnv_PortPrecedence(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want int
	}{
		{"none", nil, DefaultPort},
		{"generic PORT", map[string]string{"PORT": "5000"}, 5000},
		{"CHATD_PORT", map[string]string{"CHATD_PORT": "6000"}, 6000},
		{"CHATD_PORT wins", map[string]string{"PORT": "5000", "CHATD_PORT": "6000"}, 6000},
		{"garbage ignored", map[string]string{"PORT": "five"}, DefaultPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", "")
			t.Setenv("CHATD_PORT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := Default()
			LoadFromEnv(cfg)
			assert.Equal(t, tt.want, cfg.Port)
		})
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"90", 90 * time.Second},
		{"90s", 90 * time.Second},
		{"1m30s", 90 * time.Second},
		{"0", 0},
		{"soon", DefaultIdleTimeout},
		{"-5s", DefaultIdleTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("CHATD_IDLE_TIMEOUT", tt.value)
			cfg := Default()
			LoadFromEnv(cfg)
			assert.Equal(t, tt.want, cfg.IdleTimeout)
		})
	}
}

func TestLoadFromEnv_Server(t *testing.T) {
	t.Setenv("CHATD_WRITE_TIMEOUT", "3s")
	t.Setenv("CHATD_GRACE_PERIOD", "2")
	t.Setenv("CHATD_MAX_LINE", "1024")
	t.Setenv("CHATD_MAX_CONNS", "50")
	t.Setenv("CHATD_OUTBOX", "16")
	t.Setenv("CHATD_GREETING", "")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 2*time.Second, cfg.GracePeriod)
	assert.Equal(t, 1024, cfg.MaxLineBytes)
	assert.Equal(t, 50, cfg.MaxConns)
	assert.Equal(t, 16, cfg.OutboxSize)
	assert.Empty(t, cfg.Greeting, "an empty CHATD_GREETING disables the greeting")
}

func TestLoadFromEnv_Client(t *testing.T) {
	t.Setenv("CHATD_CONNECT", "chat.example.com:4000")
	t.Setenv("CHATD_TIMEOUT", "5")
	t.Setenv("CHATD_RETRIES", "7")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.True(t, cfg.ClientMode())
	assert.Equal(t, "chat.example.com:4000", cfg.Connect)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 7, cfg.Retries)
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run("CHATD_NO_COLOR="+v, func(t *testing.T) {
			t.Setenv("NO_COLOR", "")
			t.Setenv("CHATD_NO_COLOR", v)
			cfg := Default()
			LoadFromEnv(cfg)
			assert.True(t, cfg.NoColor)
		})
	}

	t.Run("NO_COLOR", func(t *testing.T) {
		t.Setenv("NO_COLOR", "anything")
		cfg := Default()
		LoadFromEnv(cfg)
		assert.True(t, cfg.NoColor)
	})

	t.Run("false", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		t.Setenv("CHATD_NO_COLOR", "no")
		cfg := Default()
		LoadFromEnv(cfg)
		assert.False(t, cfg.NoColor)
	})
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("CHATD_VERBOSE", "2")
	cfg := Default()
	LoadFromEnv(cfg)
	assert.Equal(t, 2, cfg.Verbose)
}

func TestLoadFromEnv_EmptyDoesNotOverride(t *testing.T) {
	t.Setenv("CHATD_CONNECT", "")
	t.Setenv("CHATD_MAX_CONNS", "")
	cfg := &Config{Connect: "keep:1", MaxConns: 9}
	LoadFromEnv(cfg)
	assert.Equal(t, "keep:1", cfg.Connect)
	assert.Equal(t, 9, cfg.MaxConns)
}
