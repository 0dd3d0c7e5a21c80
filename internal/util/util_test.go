package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative joins base dir", "state.db", "/var/lib/bakmon/state.db"},
		{"absolute taken as-is", "/tmp/state.db", "/tmp/state.db"},
		{"memory taken as-is", ":memory:", ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StorePath("/var/lib/bakmon", tt.path))
		})
	}
}

func TestSetupDirectories(t *testing.T) {
	base := t.TempDir()
	runDir := RunDir(base)
	logDir := LogDir(base)

	require.NoError(t, SetupDirectories(runDir, logDir))
	for _, dir := range []string{runDir, logDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent on existing directories.
	require.NoError(t, SetupDirectories(runDir, logDir))
}

func TestSetupLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "bakmon.log")

	logger, logFile, err := SetupLogging(logPath)
	require.NoError(t, err)
	defer logFile.Close()

	logger.Info("Test message")
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Test message")
}
