package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("info", "text", &buf)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("trace", "text", &buf)

	logger.Log(context.Background(), LevelTrace, "deep detail")

	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), `msg="deep detail"`)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept", "attempt", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, float64(2), rec["attempt"])
}

func TestDefaultLogFormatForNonTerminal(t *testing.T) {
	assert.Equal(t, "json", DefaultLogFormat(&bytes.Buffer{}))

	// An empty format falls back to the writer's default.
	var buf bytes.Buffer
	newLogger("info", "", &buf).Info("x")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("trace")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug-4, lvl)

	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}
