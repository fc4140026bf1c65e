// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded when present and no other file is named.
const DefaultEnvFile = ".env"

// Config holds every COUNTERSLOT_* setting.
type Config struct {
	DBPath        string        `env:"COUNTERSLOT_DB"             envDefault:"counterslot.db"`
	ManifestPath  string        `env:"COUNTERSLOT_MANIFEST"`
	LogLevel      string        `env:"COUNTERSLOT_LOG_LEVEL"      envDefault:"info"`
	HTTPAddr      string        `env:"COUNTERSLOT_HTTP_ADDR"      envDefault:"127.0.0.1:8899"`
	TokenAudience string        `env:"COUNTERSLOT_TOKEN_AUDIENCE" envDefault:"counterslot"`
	TokenTTL      time.Duration `env:"COUNTERSLOT_TOKEN_TTL"      envDefault:"5m"`
	OTELEndpoint  string        `env:"COUNTERSLOT_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads envFile into the process environment, then parses Config.
// Variables already set in the environment win over the file. An empty
// envFile tries DefaultEnvFile and ignores it when absent; a named file
// must exist.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("COUNTERSLOT_DB must not be empty")
	}
	if strings.TrimSpace(c.TokenAudience) == "" {
		return errors.New("COUNTERSLOT_TOKEN_AUDIENCE must not be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("COUNTERSLOT_TOKEN_TTL must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("COUNTERSLOT_LOG_LEVEL: %w", err)
	}
	return level, nil
}
