package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestIsolatedLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	log := NewIsolatedLogger(path)

	log.Debug("STORE_BRIDGE", "dropped below info", nil)
	log.Info("STORE_BRIDGE", "Purchase synced", map[string]interface{}{"transaction_id": "t-1"})
	log.Error("STORE_BRIDGE", "Purchase rejected", map[string]interface{}{"error": "claimed"})
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "STORE_BRIDGE", first["module"])
	assert.Equal(t, "Purchase synced", first["message"])
	assert.Equal(t, "t-1", first["details"].(map[string]interface{})["transaction_id"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "claimed", second["error_ref"])
}

func TestNewWithoutOutputsIsNop(t *testing.T) {
	log := New(Options{})
	assert.NotPanics(t, func() { log.Info("X", "nothing", nil) })
}
