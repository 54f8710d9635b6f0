// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDataDir    = "WAVEDASH_DATA_DIR"
	EnvJournal    = "WAVEDASH_JOURNAL"
	EnvLogLevel   = "WAVEDASH_LOG_LEVEL"
	EnvQueueLimit = "WAVEDASH_QUEUE_LIMIT"
)

// Config holds the runtime settings.
type Config struct {
	// DataDir is the base directory for relative dataset locations.
	DataDir string

	// Journal is the SQLite wave journal path. Empty disables journaling.
	Journal string

	// LogLevel is the minimum slog level.
	LogLevel slog.Level

	// QueueLimit bounds distinct pending properties per session; 0 is
	// unbounded.
	QueueLimit int
}

// Load reads .env files (when present) and then the environment. Variables
// already set in the environment win over .env entries. With no files
// given, ".env" in the working directory is tried.
func Load(files ...string) (*Config, error) {
	if err := loadDotenv(files); err != nil {
		return nil, err
	}
	return FromEnv()
}

// FromEnv reads the environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DataDir: getEnvOrDefault(EnvDataDir, "."),
		Journal: os.Getenv(EnvJournal),
	}

	level, err := ParseLevel(getEnvOrDefault(EnvLogLevel, "info"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	cfg.LogLevel = level

	limit, err := getEnvIntOrDefault(EnvQueueLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvQueueLimit, err)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%s: must not be negative, got %d", EnvQueueLimit, limit)
	}
	cfg.QueueLimit = limit

	return cfg, nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		// A missing default .env is normal.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", value)
	}
	return n, nil
}
