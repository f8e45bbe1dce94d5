// Package config loads server settings from EMPIRE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/empire-sim/internal/progression"
)

// Config holds the server settings.
type Config struct {
	Port         int      `env:"EMPIRE_PORT" envDefault:"8001"`
	Ruleset      string   `env:"EMPIRE_RULESET" envDefault:"business"`
	Store        string   `env:"EMPIRE_STORE" envDefault:"sqlite"`
	DBPath       string   `env:"EMPIRE_DB_PATH" envDefault:"data/empire.db"`
	CatalogFile  string   `env:"EMPIRE_CATALOG_FILE"`
	LevelPolicy  string   `env:"EMPIRE_LEVEL_POLICY"` // Empty keeps the ruleset default
	Seed         int64    `env:"EMPIRE_SEED"`         // 0 seeds from the clock
	LogLevel     string   `env:"EMPIRE_LOG_LEVEL" envDefault:"info"`
	CORSOrigins  []string `env:"EMPIRE_CORS_ORIGINS" envDefault:"*" envSeparator:","`
	DecisionRate int      `env:"EMPIRE_DECISION_RATE" envDefault:"60"` // Per client per minute
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadFrom is Load with an explicit environment, for tests.
func LoadFrom(environ map[string]string) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("EMPIRE_PORT %d out of range", c.Port))
	}
	switch c.Ruleset {
	case "business", "global":
	default:
		errs = append(errs, fmt.Errorf("EMPIRE_RULESET %q: want business or global", c.Ruleset))
	}
	switch c.Store {
	case "sqlite":
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("EMPIRE_DB_PATH is required for the sqlite store"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("EMPIRE_STORE %q: want sqlite or memory", c.Store))
	}
	if c.LevelPolicy != "" {
		if _, err := progression.ParseLevelPolicy(c.LevelPolicy); err != nil {
			errs = append(errs, fmt.Errorf("EMPIRE_LEVEL_POLICY: %w", err))
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.DecisionRate <= 0 {
		errs = append(errs, fmt.Errorf("EMPIRE_DECISION_RATE %d must be positive", c.DecisionRate))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("EMPIRE_LOG_LEVEL: %w", err)
	}
	return l, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
