// Package config loads process configuration from ~/.gchat/config.toml
// and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rcliao/gchat/internal/store"
)

// Config is the process configuration. Chat data and user settings live
// in the store; this only says where the store is and how to run.
type Config struct {
	DBPath   string       `toml:"db_path"`
	Backend  string       `toml:"backend"`
	LogLevel string       `toml:"log_level"`
	Gemini   GeminiConfig `toml:"gemini"`
}

// GeminiConfig holds backend bootstrap values.
type GeminiConfig struct {
	// APIKey is used when the settings hold no key.
	APIKey string `toml:"api_key"`
}

// Dir returns the gchat directory under the user's home.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gchat"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{Backend: store.BackendSQLite, LogLevel: "info"}
	if dir, err := Dir(); err == nil {
		cfg.DBPath = filepath.Join(dir, "gchat.db")
	}
	return cfg
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error. An empty path
// means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides replaces fields set in the environment.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GCHAT_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("GCHAT_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("GCHAT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Backend {
	case store.BackendSQLite, store.BackendBadger:
	default:
		return fmt.Errorf("invalid backend %q: want %s or %s", c.Backend, store.BackendSQLite, store.BackendBadger)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
}
