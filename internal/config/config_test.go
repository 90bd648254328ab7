package config_test

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"onfleet-workers-go/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()
	oldArgs := os.Args
	old := pflag.CommandLine
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	pflag.CommandLine.SetOutput(io.Discard)
	os.Args = []string{"cmd"}
	t.Cleanup(func() {
		pflag.CommandLine = old
		os.Args = oldArgs
	})
}

var envKeys = []string{
	"PORT", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
	"SANDBOX_STORE", "SANDBOX_API_KEYS", "ONFLEET_API_KEY", "ONFLEET_BASE_URL", "ONFLEET_RETRY_MAX_ATTEMPTS",
	"ONFLEET_RETRY_BASE_DELAY", "ONFLEET_RETRY_MAX_DELAY", "KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID", "RATE_LIMIT_ENABLED", "DISPATCH_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, config.DefaultDB(), cfg.DB)
	require.Equal(t, config.StoreBadger, cfg.Sandbox.StoreDriver)
	require.Empty(t, cfg.Sandbox.APIKeys)
	require.Equal(t, config.DefaultRetry(), cfg.Retry)
	require.Equal(t, config.DefaultBreaker(), cfg.Breaker)
	require.Equal(t, config.DefaultRateLimit(), cfg.RateLimit)
	require.Equal(t, "https://onfleet.com/api/v2", cfg.Client.BaseURL)
	require.Empty(t, cfg.Kafka.Brokers)
	require.Empty(t, cfg.Kafka.Topic)
	require.Empty(t, cfg.Kafka.GroupID)
	require.Zero(t, cfg.Dispatch.Timeout)
	require.Empty(t, cfg.Telemetry.Endpoint)
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("PORT", "9090")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "15432")
	t.Setenv("SANDBOX_STORE", "postgres")
	t.Setenv("SANDBOX_API_KEYS", "k1, k2")
	t.Setenv("ONFLEET_API_KEY", "secret")
	t.Setenv("ONFLEET_RETRY_MAX_DELAY", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "assignments")
	t.Setenv("KAFKA_GROUP_ID", "dispatchers")
	t.Setenv("DISPATCH_TIMEOUT", "90s")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "db", cfg.DB.Host)
	require.Equal(t, "15432", cfg.DB.Port)
	require.Equal(t, config.StorePostgres, cfg.Sandbox.StoreDriver)
	require.Equal(t, []string{"k1", "k2"}, cfg.Sandbox.APIKeys)
	require.Equal(t, "secret", cfg.Client.APIKey)
	require.Equal(t, 5*time.Second, cfg.Retry.MaxDelay)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "assignments", cfg.Kafka.Topic)
	require.Equal(t, "dispatchers", cfg.Kafka.GroupID)
	require.Equal(t, 90*time.Second, cfg.Dispatch.Timeout)
	require.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	resetFlags(t)
	clearEnv(t)
	t.Setenv("PORT", "9090")
	os.Args = []string{"cmd", "--port=7070", "--store-dir=/tmp/workers"}

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Port)
	require.Equal(t, "/tmp/workers", cfg.Sandbox.StoreDir)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"port out of range": {"PORT": "70000"},
		"postgres port":     {"POSTGRES_PORT": "not-a-number"},
		"unknown store":     {"SANDBOX_STORE": "sqlite"},
		"bad duration":      {"ONFLEET_RETRY_BASE_DELAY": "soon"},
		"zero attempts":     {"ONFLEET_RETRY_MAX_ATTEMPTS": "0"},
		"base above max":    {"ONFLEET_RETRY_BASE_DELAY": "10s", "ONFLEET_RETRY_MAX_DELAY": "1s"},
		"bad bool":          {"RATE_LIMIT_ENABLED": "maybe"},
		"negative dispatch": {"DISPATCH_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			resetFlags(t)
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}

			cfg, err := config.Load()
			require.Error(t, err)
			require.Nil(t, cfg)
		})
	}
}

func TestLoad_FlagsParseError(t *testing.T) {
	resetFlags(t)
	clearEnv(t)
	os.Args = []string{"cmd", "--port=not-a-number"}

	cfg, err := config.Load()

	require.Error(t, err)
	require.Nil(t, cfg)
	require.Contains(t, err.Error(), "parse flags")
}

func TestLoadEnv_DoesNotTouchFlags(t *testing.T) {
	resetFlags(t)
	clearEnv(t)
	os.Args = []string{"cmd", "--unknown-flag"}

	cfg, err := config.LoadEnv()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
}

func TestDB_DSN(t *testing.T) {
	t.Parallel()

	dsn := config.DB{Host: "db", Port: "5432", User: "u", Pass: "p@ss", Name: "workers"}.DSN()
	require.Equal(t, "postgres://u:p%40ss@db:5432/workers?sslmode=disable", dsn)
}
