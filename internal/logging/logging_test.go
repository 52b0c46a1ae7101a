package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "info", "json")
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("feed written", zap.String("feed", "courses"), zap.Int("rows", 3))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "feed written", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "courses", entry["feed"])
	assert.EqualValues(t, 3, entry["rows"])
}

func TestNewWithWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "debug", "console")
	require.NoError(t, err)

	log.Warn("slow page")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "slow page")
}

func TestAutoFormatFallsBackToJSON(t *testing.T) {
	assert.Equal(t, "json", resolveFormat(&bytes.Buffer{}, "auto"))
	assert.Equal(t, "json", resolveFormat(&bytes.Buffer{}, ""))
	assert.Equal(t, "console", resolveFormat(&bytes.Buffer{}, "Console"))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)
}
