package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestNewLoggerTagsEntriesWithService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(
		config.LoggerConfig{Level: "WARN", OutputPaths: []string{path}},
		config.AppConfig{Name: "helpdesk-service", Env: "test", Version: "1.2.0"},
	)
	require.NoError(t, err)

	logger.Info("dropped below level")
	logger.Warn("queue slow")
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "queue slow", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "helpdesk-service", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "1.2.0", entry["version"])
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "verbose"}, config.AppConfig{Name: "helpdesk-service"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
