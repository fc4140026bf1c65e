package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envTestConfig struct {
	Port int `env:"COUNTERSLOT_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	require.NoError(t, ParseEnv(&cfg))
	assert.Equal(t, 123, cfg.Port)
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("COUNTERSLOT_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "counterslot.db", cfg.DBPath)
	assert.Empty(t, cfg.ManifestPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8899", cfg.HTTPAddr)
	assert.Equal(t, "counterslot", cfg.TokenAudience)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Empty(t, cfg.OTELEndpoint)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COUNTERSLOT_DB", "/tmp/other.db")
	t.Setenv("COUNTERSLOT_TOKEN_TTL", "90s")
	t.Setenv("COUNTERSLOT_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
	assert.Equal(t, 90*time.Second, cfg.TokenTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counterslot.env")
	require.NoError(t, os.WriteFile(path, []byte("COUNTERSLOT_HTTP_ADDR=0.0.0.0:9000\nCOUNTERSLOT_TOKEN_AUDIENCE=from-file\n"), 0o600))

	// Registered so t.Setenv restores the original state after the test;
	// godotenv only fills variables that are unset.
	t.Setenv("COUNTERSLOT_HTTP_ADDR", "")
	os.Unsetenv("COUNTERSLOT_HTTP_ADDR")
	t.Setenv("COUNTERSLOT_TOKEN_AUDIENCE", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTPAddr)
	assert.Equal(t, "from-env", cfg.TokenAudience, "process environment wins over the file")
}

func TestLoad_MissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{DBPath: "x.db", LogLevel: "info", TokenAudience: "a", TokenTTL: time.Minute}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db", func(c *Config) { c.DBPath = " " }},
		{"empty audience", func(c *Config) { c.TokenAudience = "" }},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
