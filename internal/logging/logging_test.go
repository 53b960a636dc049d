package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.True(t, ValidLevel("warning"))
	assert.False(t, ValidLevel("loud"))
}

func TestNew_JSONWithComponent(t *testing.T) {
	t.Setenv("SCAPSRC_DEBUG", "")
	var buf bytes.Buffer
	log := New("json", "info", &buf)

	log.L("pipeline").Debug("hidden")
	log.L("pipeline").Info("shown", "frames", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "pipeline", record[KeyComponent])
	assert.EqualValues(t, 3, record["frames"])
}

func TestLogger_SetLevel(t *testing.T) {
	t.Setenv("SCAPSRC_DEBUG", "")
	var buf bytes.Buffer
	log := New("text", "error", &buf)
	child := log.L("element")

	child.Info("before")
	assert.Empty(t, buf.String())

	log.SetLevel("info")
	child.Info("after")
	assert.Contains(t, buf.String(), "msg=after")
	assert.Equal(t, slog.LevelInfo, log.Level())
}

func TestNew_DebugForcedByEnv(t *testing.T) {
	t.Setenv("SCAPSRC_DEBUG", "1")
	log := New("text", "error", &bytes.Buffer{})
	assert.Equal(t, slog.LevelDebug, log.Level())
}
