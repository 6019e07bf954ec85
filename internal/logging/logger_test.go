package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{" INFO ", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLogger_ComponentAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core)).WithComponent("ui").WithField("slot", "main")

	logger.LogNotice("n-1", "system", 503, "abc-123")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Showing error notice", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "ui", fields["component"])
	assert.Equal(t, "main", fields["slot"])
	assert.Equal(t, "abc-123", fields["trace_id"])
	assert.EqualValues(t, 503, fields["status"])
	assert.Equal(t, "ui", logger.Component())
}

func TestNewLogger_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortex.log")

	logger, err := NewLogger(Config{Level: WarnLevel, Format: "json", Output: path, Component: "probe"})
	require.NoError(t, err)

	logger.Info("dropped below level")
	logger.Warn("Request failed", "url", "http://localhost:8080")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Request failed", entry["msg"])
	assert.Equal(t, "probe", entry["component"])
	assert.Equal(t, "http://localhost:8080", entry["url"])
}

func TestGlobalLogger(t *testing.T) {
	old := globalLogger
	t.Cleanup(func() { globalLogger = old })

	core, logs := observer.New(zapcore.DebugLevel)
	SetGlobalLogger(NewFromZap(zap.New(core)))

	GetConfigLogger().LogConfigLoad("/tmp/notice.yaml", "defaults")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "config", logs.All()[0].ContextMap()["component"])
}
