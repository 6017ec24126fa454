// Package logging provides a thin slog wrapper with subsystem tagging.
// Output goes to stderr so probe reports on stdout stay clean.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	Init(os.Stderr, slog.LevelWarn)
}

// Init configures the process-wide logger. Call once at startup; tests
// may call it again to capture output.
func Init(w io.Writer, level slog.Level) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger.Store(slog.New(handler))
}

// Debug logs a debug-level message for a subsystem.
func Debug(subsystem, msg string, args ...any) {
	log(slog.LevelDebug, subsystem, msg, args...)
}

// Info logs an info-level message for a subsystem.
func Info(subsystem, msg string, args ...any) {
	log(slog.LevelInfo, subsystem, msg, args...)
}

// Warn logs a warning for a subsystem.
func Warn(subsystem, msg string, args ...any) {
	log(slog.LevelWarn, subsystem, msg, args...)
}

// Error logs an error-level message for a subsystem.
func Error(subsystem, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err)
	}
	log(slog.LevelError, subsystem, msg, args...)
}

func log(level slog.Level, subsystem, msg string, args ...any) {
	args = append([]any{"subsystem", subsystem}, args...)
	logger.Load().Log(context.Background(), level, msg, args...)
}
