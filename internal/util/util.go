package util

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bakmon/internal/logging"
)

func RunDir(baseDir string) string {
	return filepath.Join(baseDir, "run")
}

func LogDir(baseDir string) string {
	return filepath.Join(baseDir, "logs")
}

// StorePath resolves the state database location: absolute paths are
// taken as-is, relative paths live under the base directory.
func StorePath(baseDir, path string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func SetupDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func SetupLogging(logPath string) (*slog.Logger, *os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logger, logFile, err := logging.NewLogger(logPath)
	if err != nil {
		return nil, nil, err
	}

	return logger, logFile, nil
}
