package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 1000, cfg.MaxHistory)
	assert.Equal(t, 7, cfg.HistoryDays)
	assert.Equal(t, 15*time.Minute, cfg.HistoryStep)
	assert.Equal(t, 15*time.Minute, cfg.StreamPeriod)
	assert.Equal(t, 4, cfg.PublishEvery)
	assert.Equal(t, "@every 5m", cfg.StatusSchedule)
	assert.Equal(t, BackendMemory, cfg.KVBackend)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.False(t, cfg.IsDev())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_HISTORY", "200")
	t.Setenv("HISTORY_STEP", "30m")
	t.Setenv("STREAM_PERIOD", "10s")
	t.Setenv("KV_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SNAPSHOT_TTL", "2h")
	t.Setenv("RANDOM_SEED", "42")
	t.Setenv("TIMEZONE", "Asia/Jakarta")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 200, cfg.MaxHistory)
	assert.Equal(t, 30*time.Minute, cfg.HistoryStep)
	assert.Equal(t, 10*time.Second, cfg.StreamPeriod)
	assert.Equal(t, BackendRedis, cfg.KVBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2*time.Hour, cfg.SnapshotTTL)
	assert.Equal(t, uint64(42), cfg.RandomSeed)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		errType ConfigErrorType
	}{
		{"unparseable duration", "HISTORY_STEP", "soon", ErrParsing},
		{"unparseable int", "MAX_HISTORY", "many", ErrParsing},
		{"zero step", "HISTORY_STEP", "0s", ErrValidation},
		{"zero history", "MAX_HISTORY", "0", ErrValidation},
		{"unknown backend", "KV_BACKEND", "etcd", ErrValidation},
		{"unknown level", "LOG_LEVEL", "trace", ErrValidation},
		{"bad port", "SERVER_PORT", "http", ErrValidation},
		{"bad timezone", "TIMEZONE", "Mars/Olympus", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.errType, cfgErr.Type)
			assert.Contains(t, err.Error(), string(tt.errType))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}
