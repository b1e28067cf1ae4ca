package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/assimelha/surf/internal/config"
)

func setupTestLogger(cfg config.LoggerConfig) *bytes.Buffer {
	buf := new(bytes.Buffer)
	initializeLogger(cfg, zapcore.AddSync(buf))
	return buf
}

// The logger is a process-wide singleton.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

func TestInitializeLogger(t *testing.T) {
	t.Run("console logger colors the level", func(t *testing.T) {
		resetGlobalLogger()
		buf := setupTestLogger(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "surf"})

		GetLogger().Info("visiting page")
		Sync()

		out := buf.String()
		assert.Contains(t, out, "visiting page")
		assert.Contains(t, out, colorGreen+"INFO"+colorReset)
		assert.Contains(t, out, "surf")
	})

	t.Run("json logger writes structured entries", func(t *testing.T) {
		resetGlobalLogger()
		buf := setupTestLogger(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "surf"})

		GetLogger().Info("stealth activated", zap.Int("applied", 14))
		Sync()

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "surf", entry["logger"])
		assert.Equal(t, "stealth activated", entry["msg"])
		assert.EqualValues(t, 14, entry["applied"])
	})

	t.Run("level filters entries", func(t *testing.T) {
		resetGlobalLogger()
		buf := setupTestLogger(config.LoggerConfig{Level: "warn", Format: "json"})

		GetLogger().Info("hidden")
		GetLogger().Warn("shown")
		Sync()

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		resetGlobalLogger()
		buf := setupTestLogger(config.LoggerConfig{Level: "loud", Format: "json"})

		GetLogger().Debug("hidden")
		GetLogger().Info("shown")
		Sync()

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("file sink receives json", func(t *testing.T) {
		resetGlobalLogger()
		file := filepath.Join(t.TempDir(), "surf.log")
		setupTestLogger(config.LoggerConfig{Level: "info", Format: "console", LogFile: file, MaxSize: 1})

		GetLogger().Info("to file")
		Sync()

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "{"))
		assert.Contains(t, string(data), `"msg":"to file"`)
	})

	t.Run("only the first initialization wins", func(t *testing.T) {
		resetGlobalLogger()
		first := setupTestLogger(config.LoggerConfig{Level: "info", Format: "json"})
		second := setupTestLogger(config.LoggerConfig{Level: "info", Format: "json"})

		GetLogger().Info("once")
		Sync()

		assert.Contains(t, first.String(), "once")
		assert.Empty(t, second.String())
	})
}

func TestGetLoggerFallback(t *testing.T) {
	resetGlobalLogger()
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { Sync() })
}
