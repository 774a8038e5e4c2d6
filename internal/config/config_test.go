package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv provides the settings that have no default.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("QVALIDATOR_DATABASE__HOST", "db.internal")
	t.Setenv("QVALIDATOR_DATABASE__USER", "validator")
	t.Setenv("QVALIDATOR_DATABASE__NAME", "validator")
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Primary.Env)
	assert.True(t, cfg.IsLocal())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.InDelta(t, 20.0, cfg.Server.RateLimit, 0)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.False(t, cfg.Auth.Enabled())
	assert.Equal(t, int64(5<<20), cfg.Validator.MaxBodyBytes)
	assert.Equal(t, time.Hour, cfg.Validator.CacheTTL)
	assert.Equal(t, 5, cfg.Validator.QueueConcurrency)

	require.NotNil(t, cfg.Observability)
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, "local", cfg.Observability.Environment)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.False(t, cfg.Observability.NewRelic.Enabled())
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("QVALIDATOR_DATABASE__HOST", "")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadPrecedence(t *testing.T) {
	setRequiredEnv(t)
	path := writeFile(t, `
primary:
  env: staging
server:
  port: "9000"
  rate_limit: 0
validator:
  cache_ttl: 5m
observability:
  logging:
    level: debug
    format: console
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Primary.Env)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Zero(t, cfg.Server.RateLimit)
	assert.Equal(t, 5*time.Minute, cfg.Validator.CacheTTL)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "console", cfg.Observability.Logging.Format)
	// untouched observability keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Observability.HealthChecks.Timeout)
	assert.Equal(t, "staging", cfg.Observability.Environment)

	t.Setenv("QVALIDATOR_SERVER__PORT", "9100")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("env", "", "")
	flags.String("port", "", "")
	flags.String("unrelated", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "9200", "--unrelated", "x"}))

	cfg, err = Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "9200", cfg.Server.Port)
	assert.Equal(t, "staging", cfg.Primary.Env, "unset flags must not override")
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(ConfigFileEnv, writeFile(t, "server:\n  port: \"7000\"\n"))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadInvalidObservability(t *testing.T) {
	setRequiredEnv(t)
	path := writeFile(t, "observability:\n  logging:\n    level: loud\n")

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logging level")
}

func TestHealthChecksHas(t *testing.T) {
	hc := HealthChecksConfig{Enabled: true, Checks: []string{"database"}}
	assert.True(t, hc.Has("database"))
	assert.False(t, hc.Has("redis"))

	hc.Enabled = false
	assert.False(t, hc.Has("database"))
}

func TestGetLogLevel(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	cfg.Logging.Level = ""
	assert.Equal(t, "debug", cfg.GetLogLevel())

	cfg.Environment = "production"
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.GetLogLevel())
}
