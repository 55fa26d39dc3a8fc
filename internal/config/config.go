// Package config loads recordbook settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/caarlos0/env/v11"

	"github.com/rcliao/recordbook/internal/store"
)

// Formats are the accepted output formats.
var Formats = []string{"text", "json", "yaml"}

// Config holds session settings. Command-line flags override these.
type Config struct {
	Backend  string `env:"RECORDBOOK_BACKEND"   envDefault:"mem"`
	Format   string `env:"RECORDBOOK_FORMAT"    envDefault:"text"`
	LogLevel string `env:"RECORDBOOK_LOG_LEVEL" envDefault:"warn"`
}

// Load parses the environment into a Config. It does not validate, so that
// flags can still replace a bad value; call Validate after merging them.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate rejects unknown backends, formats and log levels.
func (c Config) Validate() error {
	if !slices.Contains(store.Backends, c.Backend) {
		return fmt.Errorf("invalid backend %q: must be one of %v", c.Backend, store.Backends)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, Formats)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
