package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Connection.AuthTimeout != 10 {
		t.Errorf("AuthTimeout = %d, want 10", cfg.Connection.AuthTimeout)
	}
	if cfg.Connection.HeartbeatInterval != 30 {
		t.Errorf("HeartbeatInterval = %d, want 30", cfg.Connection.HeartbeatInterval)
	}
	if cfg.Connection.Reconnect.BaseDelay != 1 {
		t.Errorf("BaseDelay = %d, want 1", cfg.Connection.Reconnect.BaseDelay)
	}
	if cfg.Connection.Reconnect.MaxDelay != 30 {
		t.Errorf("MaxDelay = %d, want 30", cfg.Connection.Reconnect.MaxDelay)
	}
	if cfg.Connection.Reconnect.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", cfg.Connection.Reconnect.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  url: "http://homeassistant.local:8123"
connection:
  heartbeat_interval: 15
  reconnect:
    base_delay: 2
    max_delay: 60
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.URL != "http://homeassistant.local:8123" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Connection.HeartbeatInterval != 15 {
		t.Errorf("HeartbeatInterval = %d, want 15", cfg.Connection.HeartbeatInterval)
	}
	// Unset file values keep defaults.
	if cfg.Connection.AuthTimeout != 10 {
		t.Errorf("AuthTimeout = %d, want default 10", cfg.Connection.AuthTimeout)
	}
	if cfg.Connection.Reconnect.MaxDelay != 60 {
		t.Errorf("MaxDelay = %d, want 60", cfg.Connection.Reconnect.MaxDelay)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ITSYHOME_SERVER_URL", "https://ha.example.com")
	t.Setenv("ITSYHOME_TOKEN", "secret-token")
	t.Setenv("ITSYHOME_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.URL != "https://ha.example.com" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Server.Token != "secret-token" {
		t.Errorf("Server.Token = %q", cfg.Server.Token)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero auth timeout", func(c *Config) { c.Connection.AuthTimeout = 0 }},
		{"zero heartbeat interval", func(c *Config) { c.Connection.HeartbeatInterval = 0 }},
		{"max delay below base", func(c *Config) {
			c.Connection.Reconnect.BaseDelay = 10
			c.Connection.Reconnect.MaxDelay = 5
		}},
		{"negative attempts", func(c *Config) { c.Connection.Reconnect.MaxAttempts = -1 }},
		{"empty credentials path", func(c *Config) { c.Credentials.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() = nil error for missing file")
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := Default()
	if got := cfg.AuthTimeout(); got != 10*time.Second {
		t.Errorf("AuthTimeout() = %v", got)
	}
	if got := cfg.HeartbeatInterval(); got != 30*time.Second {
		t.Errorf("HeartbeatInterval() = %v", got)
	}
	if got := cfg.ReconnectMaxDelay(); got != 30*time.Second {
		t.Errorf("ReconnectMaxDelay() = %v", got)
	}
}
