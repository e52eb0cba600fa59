package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var stderr bytes.Buffer
	logger, err := New(Options{Level: "warn", Stderr: &stderr})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("hidden")
	logger.Warn("shown", zap.String("rule", "stack.md"))
	require.NoError(t, logger.Close())

	out := stderr.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "stack.md")
}

func TestLoggerVerboseForcesDebug(t *testing.T) {
	var stderr bytes.Buffer
	logger, err := New(Options{Level: "error", Verbose: true, Stderr: &stderr})
	require.NoError(t, err)
	logger.Debug("debug line")
	require.NoError(t, logger.Close())
	assert.Contains(t, stderr.String(), "debug line")
}

func TestLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "governance.log")
	for i := 0; i < 2; i++ {
		logger, err := New(Options{Level: "info", File: path, Stderr: &bytes.Buffer{}})
		require.NoError(t, err)
		logger.Info("overlay applied")
		require.NoError(t, logger.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"overlay applied"`)
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	logger := Nop()
	logger.Error("discarded")
	assert.NoError(t, logger.Close())
}
