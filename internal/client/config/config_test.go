package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T, args ...string) {
	t.Helper()
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = append([]string{"knowbrain"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerBaseURL)
	assert.Empty(t, c.WebSocketURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 20, c.PageSize)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_DefaultsAndDerivedWebsocketURL(t *testing.T) {
	resetArgs(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerBaseURL)
	assert.Equal(t, "ws://127.0.0.1:8080/ws/notes", cfg.WebSocketURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 20, cfg.PageSize)
}

func TestLoadConfig_YamlFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowbrain.yaml")
	yaml := "server_base_url: https://notes.example.com\nrequest_timeout: 30s\npage_size: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	resetArgs(t, "-c", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://notes.example.com", cfg.ServerBaseURL)
	assert.Equal(t, "wss://notes.example.com/ws/notes", cfg.WebSocketURL, "https base derives a wss endpoint")
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 50, cfg.PageSize)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowbrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 50\n"), 0o600))

	resetArgs(t, "-c", path)
	t.Setenv("KNOWBRAIN_PAGE_SIZE", "5")
	t.Setenv("KNOWBRAIN_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	t.Setenv("KNOWBRAIN_SERVER_BASE_URL", "http://from-env:1111")
	resetArgs(t, "-a", "http://from-flag:2222", "-p", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:2222", cfg.ServerBaseURL)
	assert.Equal(t, "ws://from-flag:2222/ws/notes", cfg.WebSocketURL)
	assert.Equal(t, 7, cfg.PageSize)
}

func TestLoadConfig_ExplicitWebsocketURLIsKept(t *testing.T) {
	resetArgs(t, "-w", "ws://push.example.com/ws/notes")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "ws://push.example.com/ws/notes", cfg.WebSocketURL)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	t.Run("bad base url", func(t *testing.T) {
		resetArgs(t, "-a", "not-a-url")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("zero page size", func(t *testing.T) {
		resetArgs(t, "-p", "0")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("zero timeout", func(t *testing.T) {
		resetArgs(t, "-t", "0")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
