package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "prod", slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("history initialized", "produced", 5)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "history initialized", entry["msg"])
	assert.Equal(t, appName, entry["app"])
	assert.Equal(t, "prod", entry["env"])
	assert.Equal(t, float64(5), entry["produced"])
}

func TestDevLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "dev", slog.LevelDebug)

	logger.Debug("record synthesized", "temperature", 21.5)

	out := buf.String()
	assert.Contains(t, out, "record synthesized")
	assert.Contains(t, out, "21.5")
	assert.NotContains(t, out, `"msg"`)
}
