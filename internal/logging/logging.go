// Package logging wraps log/slog: a thin adapter whose With adds fixed
// fields to every later record without requiring callers to rebuild a
// handler each time.
package logging

import (
	"log/slog"
	"os"
)

// Logger is the structured process logger, held by the Proxy and the HTTP
// server.
type Logger struct {
	slog *slog.Logger
}

// New builds the process logger. JSON output in production, text output
// when testMode is set.
func New(testMode bool, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if testMode {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return &Logger{slog: slog.New(handler)}
}

// With returns a Logger that prefixes every record with the given fields.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{}) { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{}) { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.slog.Error(msg, args...) }
