package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"API_URL", "FISHVIEW_API_URL", "FISHVIEW_TRACKER_BASE_URL", "FISHVIEW_SERVER_PORT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	inTempDir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Equal(t, "http://localhost:8088", cfg.Tracker.BaseURL)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8089", cfg.ServerAddr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 44.692661, cfg.Display.CenterLat)
	assert.Equal(t, -63.639532, cfg.Display.CenterLon)
	assert.Equal(t, 14, cfg.Display.Zoom)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 5000, cfg.Journal.MaxRows)
	assert.Equal(t, "info", cfg.Advanced.LogLevel)
	assert.True(t, cfg.AllowAllOrigins())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := inTempDir(t)

	content := `
server:
  port: 9000
  allow_origins: ["http://localhost:5173", "http://127.0.0.1:5173"]
  shutdown_timeout: 3s
tracker:
  base_url: "http://tracker.internal:8088"
display:
  zoom: 12
  time_zone: "UTC"
journal:
  max_rows: 100
advanced:
  log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fishview.yaml"), []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Contains(t, cfg.File, "fishview.yaml")
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.Server.AllowOrigins)
	assert.False(t, cfg.AllowAllOrigins())
	assert.Equal(t, "http://tracker.internal:8088", cfg.Tracker.BaseURL)
	assert.Equal(t, 12, cfg.Display.Zoom)
	assert.Equal(t, 100, cfg.Journal.MaxRows)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 44.692661, cfg.Display.CenterLat)
}

func TestLoad_ExplicitPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	inTempDir(t)

	t.Setenv("API_URL", "http://from-api-url:1")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-api-url:1", cfg.Tracker.BaseURL)

	t.Setenv("FISHVIEW_API_URL", "http://from-prefixed:2")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-prefixed:2", cfg.Tracker.BaseURL)

	t.Setenv("FISHVIEW_TRACKER_BASE_URL", "https://from-key:3")
	t.Setenv("FISHVIEW_SERVER_PORT", "9100")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://from-key:3", cfg.Tracker.BaseURL)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoad_SplitsCommaSeparatedOrigins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  allow_origins: [\"http://a, http://b\"]\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.AllowOrigins)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	inTempDir(t)

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"relative base url", func(c *AppConfig) { c.Tracker.BaseURL = "localhost:8088" }},
		{"ftp base url", func(c *AppConfig) { c.Tracker.BaseURL = "ftp://host" }},
		{"port zero", func(c *AppConfig) { c.Server.Port = 0 }},
		{"port too big", func(c *AppConfig) { c.Server.Port = 70000 }},
		{"zoom", func(c *AppConfig) { c.Display.Zoom = 25 }},
		{"lat", func(c *AppConfig) { c.Display.CenterLat = 91 }},
		{"lon", func(c *AppConfig) { c.Display.CenterLon = -181 }},
		{"tz", func(c *AppConfig) { c.Display.TimeZone = "Not/AZone" }},
		{"journal", func(c *AppConfig) { c.Journal.MaxRows = -1 }},
		{"shutdown", func(c *AppConfig) { c.Server.ShutdownTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	assert.NoError(t, base.Validate())
}
