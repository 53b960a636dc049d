package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go2tv.app/scapsrc/scapsrc"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "scapsrc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "{}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, scapsrc.DefaultSettings(), cfg.Settings())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
fps: 30
show_cursor: false
perform_internal_preroll: true
backend: pattern
pattern:
  width: 640
  height: 360
  format: RGB
num_buffers: 100
accept_caps: "video/x-raw, format=RGB"
stats_interval: 2s
frame_timeout: 500ms
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, scapsrc.Settings{FPS: 30, ShowCursor: false, PerformInternalPreroll: true}, cfg.Settings())
	assert.Equal(t, BackendPattern, cfg.Backend)
	assert.Equal(t, PatternConfig{Width: 640, Height: 360, Format: "RGB"}, cfg.Pattern)
	assert.Equal(t, 100, cfg.NumBuffers)
	assert.Equal(t, 2*time.Second, cfg.StatsInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.FrameTimeout)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "fps: 30\npattern:\n  width: 640\n")
	t.Setenv("SCAPSRC_FPS", "50")
	t.Setenv("SCAPSRC_PATTERN_WIDTH", "320")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), cfg.FPS)
	assert.Equal(t, uint32(320), cfg.Pattern.Width)
}

func TestLoad_BadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "fps: [1, 2\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.FPS = 0
	cfg.Backend = "x11"
	cfg.NumBuffers = -1
	cfg.AcceptCaps = "audio/x-raw"
	cfg.StatsInterval = -time.Second
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"fps", "backend", "num_buffers", "accept_caps", "stats_interval", "log.level", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.ErrorIs(t, err, scapsrc.ErrInvalidValue)
	assert.ErrorIs(t, err, scapsrc.ErrInvalidCaps)
}

func TestValidate_Pattern(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendPattern
	cfg.Pattern.Format = "I420"
	cfg.Pattern.Width = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern.format")
	assert.Contains(t, err.Error(), "pattern size")
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "fps: 30\n")

	loader := NewLoader(path, nil)
	_, err := loader.Load()
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	loader.Watch(func(cfg *Config) { reloaded <- cfg })

	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("fps: 60\n"), 0o600); err != nil {
			return false
		}
		select {
		case cfg := <-reloaded:
			return cfg.FPS == 60
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 10*time.Millisecond)
}
