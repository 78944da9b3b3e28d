package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/phrazzld/podscribe/internal/config"
)

// ParseLevel converts a configured level name (case-insensitive) into a
// slog.Level. It reports false for unknown names.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New creates a JSON logger writing to out at the given level. An unknown
// level falls back to info and is reported through the returned logger.
func New(out io.Writer, levelName string) *slog.Logger {
	return newLogger(levelName, func(level slog.Level) slog.Handler {
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	})
}

// NewConsole creates a colorized, human-readable logger for local
// development.
func NewConsole(out io.Writer, levelName string, color bool) *slog.Logger {
	return newLogger(levelName, func(level slog.Level) slog.Handler {
		return tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !color,
		})
	})
}

func newLogger(levelName string, handler func(slog.Level) slog.Handler) *slog.Logger {
	level, ok := ParseLevel(levelName)

	logger := slog.New(handler(level))
	if !ok {
		logger.Warn("invalid log level configured, using default level",
			"configured_level", levelName,
			"default_level", "info")
	}
	return logger
}

// Setup initializes the application's logging system based on the provided
// configuration. It creates a structured logger on stdout, JSON unless the
// console format is configured, and sets it as the default logger so
// slog.Info and friends use it too.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	var logger *slog.Logger
	switch cfg.LogFormat {
	case config.LogFormatConsole:
		logger = NewConsole(os.Stdout, cfg.LogLevel, true)
	case config.LogFormatJSON, "":
		logger = New(os.Stdout, cfg.LogLevel)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	slog.SetDefault(logger)
	return logger, nil
}
