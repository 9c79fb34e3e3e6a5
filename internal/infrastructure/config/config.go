package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Itsyhome bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Connection  ConnectionConfig  `yaml:"connection"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains the hub endpoint and access token.
//
// Both fields are optional in the file: they may instead come from the
// persistent credential store, or from ITSYHOME_SERVER_URL / ITSYHOME_TOKEN.
type ServerConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// ConnectionConfig contains protocol client timing settings.
type ConnectionConfig struct {
	// AuthTimeout is the maximum time in seconds for the full
	// connect-and-authenticate handshake. Default: 10.
	AuthTimeout int `yaml:"auth_timeout"`

	// HeartbeatInterval is the liveness probe interval in seconds. Default: 30.
	HeartbeatInterval int `yaml:"heartbeat_interval"`

	// HeartbeatTimeout is how long in seconds to wait for a probe reply
	// before treating the connection as dead. Default: 10.
	HeartbeatTimeout int `yaml:"heartbeat_timeout"`

	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains reconnection backoff settings.
type ReconnectConfig struct {
	// BaseDelay is the initial backoff delay in seconds. Default: 1.
	BaseDelay int `yaml:"base_delay"`

	// MaxDelay caps the backoff delay in seconds. Default: 30.
	MaxDelay int `yaml:"max_delay"`

	// MaxAttempts limits consecutive reconnection attempts before the
	// client gives up and waits for an explicit reconnect. Default: 10.
	MaxAttempts int `yaml:"max_attempts"`
}

// CredentialsConfig contains the persistent credential store settings.
type CredentialsConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// Parameters:
//   - path: Path to the YAML configuration file; empty means defaults + env only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			AuthTimeout:       10,
			HeartbeatInterval: 30,
			HeartbeatTimeout:  10,
			Reconnect: ReconnectConfig{
				BaseDelay:   1,
				MaxDelay:    30,
				MaxAttempts: 10,
			},
		},
		Credentials: CredentialsConfig{
			Path: "./data/credentials.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ITSYHOME_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ITSYHOME_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("ITSYHOME_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("ITSYHOME_CREDENTIALS_PATH"); v != "" {
		cfg.Credentials.Path = v
	}
	if v := os.Getenv("ITSYHOME_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ITSYHOME_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Connection.AuthTimeout < 1 {
		errs = append(errs, "connection.auth_timeout must be at least 1 second")
	}
	if c.Connection.HeartbeatInterval < 1 {
		errs = append(errs, "connection.heartbeat_interval must be at least 1 second")
	}
	if c.Connection.HeartbeatTimeout < 1 {
		errs = append(errs, "connection.heartbeat_timeout must be at least 1 second")
	}
	if c.Connection.Reconnect.BaseDelay < 1 {
		errs = append(errs, "connection.reconnect.base_delay must be at least 1 second")
	}
	if c.Connection.Reconnect.MaxDelay < c.Connection.Reconnect.BaseDelay {
		errs = append(errs, "connection.reconnect.max_delay must not be below base_delay")
	}
	if c.Connection.Reconnect.MaxAttempts < 0 {
		errs = append(errs, "connection.reconnect.max_attempts must not be negative")
	}
	if c.Credentials.Path == "" {
		errs = append(errs, "credentials.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// AuthTimeout returns the connect/authenticate guard as a Duration.
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.Connection.AuthTimeout) * time.Second
}

// HeartbeatInterval returns the liveness probe interval as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Connection.HeartbeatInterval) * time.Second
}

// HeartbeatTimeout returns the probe reply timeout as a Duration.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Connection.HeartbeatTimeout) * time.Second
}

// ReconnectBaseDelay returns the initial backoff delay as a Duration.
func (c *Config) ReconnectBaseDelay() time.Duration {
	return time.Duration(c.Connection.Reconnect.BaseDelay) * time.Second
}

// ReconnectMaxDelay returns the backoff cap as a Duration.
func (c *Config) ReconnectMaxDelay() time.Duration {
	return time.Duration(c.Connection.Reconnect.MaxDelay) * time.Second
}
