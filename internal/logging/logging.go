package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sparkify/dwh/internal/config"
)

// Setup returns a text logger writing to stderr and a dated file in directory.
// Stdout is left to command output and the progress view.
func Setup(level, directory string) (*slog.Logger, error) {
	if directory == "" {
		directory = config.DefaultLogDir
	}
	directory = config.ExpandHome(directory)

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(directory, FileName(time.Now()))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return New(io.MultiWriter(os.Stderr, file), level), nil
}

// New builds a text logger on w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// Discard is a logger that drops everything, for tests and library defaults.
func Discard() *slog.Logger {
	return New(io.Discard, "error")
}

// FileName is the daily log file name for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("dwh-%s.log", t.Format("2006-01-02"))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
