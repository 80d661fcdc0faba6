package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Бэкенды хранилища снимков
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ConfigErrorType категория ошибки загрузки конфигурации
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "PARSING_FAILED"
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError ошибка загрузки конфигурации
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config конфигурация приложения
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"prod" validate:"oneof=dev prod test"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080" validate:"required,numeric"`

	MaxHistory     int           `envconfig:"MAX_HISTORY" default:"1000" validate:"min=1"`
	HistoryDays    int           `envconfig:"HISTORY_DAYS" default:"7" validate:"min=0"`
	HistoryStep    time.Duration `envconfig:"HISTORY_STEP" default:"15m" validate:"gt=0"`
	StreamPeriod   time.Duration `envconfig:"STREAM_PERIOD" default:"15m" validate:"gt=0"`
	PublishEvery   int           `envconfig:"PUBLISH_EVERY" default:"4" validate:"min=0"`
	StatusSchedule string        `envconfig:"STATUS_SCHEDULE" default:"@every 5m" validate:"required"`

	KVBackend     string        `envconfig:"KV_BACKEND" default:"memory" validate:"oneof=redis sqlite memory"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379" validate:"required_if=KVBackend redis"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0" validate:"min=0"`
	RedisPrefix   string        `envconfig:"REDIS_PREFIX" default:"microclimate:"`
	SQLitePath    string        `envconfig:"SQLITE_PATH" default:"data/snapshots.db" validate:"required_if=KVBackend sqlite"`
	SnapshotTTL   time.Duration `envconfig:"SNAPSHOT_TTL" default:"0s" validate:"min=0"`

	// RandomSeed 0 означает случайное зерно
	RandomSeed uint64 `envconfig:"RANDOM_SEED" default:"0"`
	Timezone   string `envconfig:"TIMEZONE" default:"Local"`
}

// Load читает .env (если есть) и переменные окружения, затем проверяет значения
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if _, err := cfg.Location(); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "invalid TIMEZONE",
			Err:     err,
		}
	}

	return &cfg, nil
}

// IsDev режим разработки
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// Level уровень логирования
func (c *Config) Level() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}

// Location часовой пояс меток времени
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ParseLogLevel разбирает уровень логирования
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
