package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_defaults(t *testing.T) {
	cfg, err := New("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 4, cfg.LiveDelayFragmentCount)
	assert.Equal(t, time.Second, cfg.WallclockInterval)
	assert.Equal(t, 100, cfg.HistorySize)
	assert.Equal(t, 1000.0, cfg.InitialVideoBitrateKbps)
	assert.Equal(t, 100.0, cfg.InitialAudioBitrateKbps)
	assert.Empty(t, cfg.MaxBitrateExpr)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestNew_environmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LIVE_DELAY_FRAGMENT_COUNT", "6")
	t.Setenv("WALLCLOCK_INTERVAL", "250ms")
	t.Setenv("MAX_BITRATE_EXPR", "<= 3000000")
	t.Setenv("REDIS_DB", "2")

	cfg, err := New("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 6, cfg.LiveDelayFragmentCount)
	assert.Equal(t, 250*time.Millisecond, cfg.WallclockInterval)
	assert.Equal(t, "<= 3000000", cfg.MaxBitrateExpr)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestNew_configFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history_size: 7\nlog_format: text\n"), 0o600))

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.HistorySize)
	assert.Equal(t, "text", cfg.LogFormat)

	cfg, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing file falls back to defaults")
	assert.Equal(t, 100, cfg.HistorySize)
}

func TestNew_invalid(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := New("")
	assert.Error(t, err)
}

func TestLoadAndGetEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DASH_TEST_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DASH_TEST_KEY") })

	require.NoError(t, Load(path))
	assert.Equal(t, "from-dotenv", GetEnv("DASH_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("DASH_TEST_UNSET", "fallback"))
	assert.Error(t, Load(filepath.Join(t.TempDir(), "absent.env")))
}
