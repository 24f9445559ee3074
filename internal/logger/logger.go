// Package logger configures the process-wide slog default. When a log file
// is configured, output goes to both stdout and a size-rotated file.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default logger. level is one of debug, info, warn,
// error (case-insensitive, empty means info). file enables rotated file
// output when non-empty.
func Setup(level, file string) {
	out := io.Writer(os.Stdout)
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		out = io.MultiWriter(os.Stdout, rotated)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "warning", "WARN", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
