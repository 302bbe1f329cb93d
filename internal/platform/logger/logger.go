package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/scry-vault/internal/config"
)

// ParseLevel maps a configured level name to a slog.Level (case-insensitive).
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New builds a logger writing to w. format is "json" or "text".
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured logger on stdout with the
// appropriate log level and sets it as the default logger for the application.
//
// An invalid level falls back to info and is reported through the new logger.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	level, levelErr := ParseLevel(cfg.LogLevel)

	logger := New(os.Stdout, level, cfg.LogFormat)

	// Set this logger as the default for the application
	// This allows using the slog package functions directly (slog.Info, slog.Error, etc.)
	slog.SetDefault(logger)

	if levelErr != nil {
		logger.Warn("invalid log level configured, using default level",
			slog.String("configured_level", cfg.LogLevel),
			slog.String("default_level", "info"))
	}
	return logger, nil
}

// SetupCLI configures a text logger on stderr for command-line tools, so
// diagnostics never mix with the tool's own output on stdout.
func SetupCLI(levelName string) *slog.Logger {
	level, err := ParseLevel(levelName)
	logger := New(os.Stderr, level, "text")
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("invalid log level, using info", slog.String("configured_level", levelName))
	}
	return logger
}
