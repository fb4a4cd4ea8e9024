package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost:8080", cfg.Addr())
	assert.True(t, cfg.Preview.IsAutoRefresh())
	assert.Equal(t, 2*time.Second, cfg.Preview.GetCopiedReset())
	assert.Equal(t, time.Hour, cfg.Sessions.GetTTL())
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	content := `title: Playground
server:
  port: 9090
  debug: true
preview:
  auto_refresh: false
  copied_reset: 500ms
screenshot:
  chrome_url: http://localhost:9222
  width: 640
  allow_network: true
sessions:
  ttl: 10m
api:
  cors:
    origins: ["http://localhost:3000"]
  rate_limit:
    requests_per_second: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "Playground", cfg.Title)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset keys keep their defaults")
	assert.True(t, cfg.Server.Debug)
	assert.False(t, cfg.Preview.IsAutoRefresh())
	assert.Equal(t, 500*time.Millisecond, cfg.Preview.GetCopiedReset())
	assert.Equal(t, "http://localhost:9222", cfg.Screenshot.ChromeURL)
	assert.Equal(t, 640, cfg.Screenshot.GetWidth())
	assert.Equal(t, 800, cfg.Screenshot.GetHeight())
	assert.True(t, cfg.Screenshot.AllowNetwork)
	assert.False(t, DefaultConfig().Screenshot.AllowNetwork, "captures are offline unless enabled")
	assert.Equal(t, 10*time.Minute, cfg.Sessions.GetTTL())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.GetCORSOrigins())
	assert.Equal(t, 5.0, cfg.API.GetRateLimitRPS())
	assert.Equal(t, 40, cfg.API.GetRateLimitBurst())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TINKERPEN_SERVER_PORT", "7070")
	t.Setenv("TINKERPEN_SCREENSHOT_CHROME_URL", "http://chrome:9222")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "http://chrome:9222", cfg.Screenshot.ChromeURL)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("sessions:\n  ttl: forever\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessions.ttl")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg := DefaultConfig()
	cfg.Server.Port = 8181
	cfg.Screenshot.ChromeURL = "http://localhost:9222"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, loaded.Server.Port)
	assert.Equal(t, "http://localhost:9222", loaded.Screenshot.ChromeURL)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"TINKERPEN_TITLE", "title"},
		{"TINKERPEN_SERVER_PORT", "server.port"},
		{"TINKERPEN_SCREENSHOT_CHROME_URL", "screenshot.chrome_url"},
		{"TINKERPEN_PREVIEW_AUTO_REFRESH", "preview.auto_refresh"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.input))
		})
	}
}

func TestDurationGetters(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"empty", "", 30 * time.Second},
		{"invalid", "soon", 30 * time.Second},
		{"explicit", "5s", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ScreenshotConfig{Timeout: tt.value}
			if got := cfg.GetTimeout(); got != tt.expected {
				t.Errorf("GetTimeout() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAPIConfigNilDefaults(t *testing.T) {
	var api *APIConfig

	assert.Nil(t, api.GetCORSOrigins())
	assert.Equal(t, 20.0, api.GetRateLimitRPS())
	assert.Equal(t, 40, api.GetRateLimitBurst())
	assert.Equal(t, 10000, api.GetRateLimitMaxIPs())
}
