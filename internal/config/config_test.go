package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDataDir, EnvJournal, EnvLogLevel, EnvQueueLimit} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "", cfg.Journal)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 0, cfg.QueueLimit)
}

func TestFromEnv_Values(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, "/data")
	t.Setenv(EnvJournal, "/tmp/j.db")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvQueueLimit, "64")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "/tmp/j.db", cfg.Journal)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 64, cfg.QueueLimit)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{EnvLogLevel, "loud"},
		{EnvQueueLimit, "many"},
		{EnvQueueLimit, "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_DotenvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("WAVEDASH_DATA_DIR=/from/file\nWAVEDASH_LOG_LEVEL=warn\n"), 0o644))

	// The environment wins over the file.
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.DataDir)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	os.Unsetenv(EnvDataDir)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
