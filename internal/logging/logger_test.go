package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configurator.log")
	logger := New(Options{Level: "warn", File: path})

	logger.Info("dropped")
	logger.Warn("kept", zap.String("user_id", "42"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), string(data))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "42", entry["user_id"])
	assert.NotContains(t, string(data), "dropped")
}
