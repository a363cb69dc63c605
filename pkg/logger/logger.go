// Package logger provides structured logging for patchlaunch.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Logger provides structured logging interface.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a new logger with additional key-value pairs.
	With(keysAndValues ...any) Logger
}

const (
	// LogFilePermissions defines the file permissions for log files (owner read/write only).
	LogFilePermissions = 0o600

	// logDirPermissions is the mode used when the log directory has to be created.
	logDirPermissions = 0o700

	// MaxLogFileSize is the size after which the log file is rotated on open.
	MaxLogFileSize = 10 << 20
)

// SlogAdapter implements Logger on top of a slog.Logger.
type SlogAdapter struct {
	logger  *slog.Logger
	handler *CustomHandler
}

// NewFileLogger creates a logger that appends to the file at filePath.
// The parent directory is created when missing and a file larger than
// MaxLogFileSize is moved to filePath.1 first.
func NewFileLogger(filePath string, debugMode, traceMode bool) (*SlogAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), logDirPermissions); err != nil {
		return nil, errors.Wrap(err, "creating log directory")
	}

	if err := rotate(filePath, MaxLogFileSize); err != nil {
		return nil, err
	}

	handler, err := NewFileHandler(filePath, LevelFromFlags(debugMode, traceMode))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	return &SlogAdapter{logger: slog.New(handler), handler: handler}, nil
}

// NewFileLoggerWithWriter creates a logger writing to w.
func NewFileLoggerWithWriter(w io.Writer, debugMode, traceMode bool) *SlogAdapter {
	handler := NewWriterHandler(w, LevelFromFlags(debugMode, traceMode))

	return &SlogAdapter{logger: slog.New(handler), handler: handler}
}

// rotate keeps a single previous generation of the log file.
func rotate(filePath string, maxSize int64) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return errors.Wrap(err, "checking log file")
	}

	if info.Size() < maxSize {
		return nil
	}

	return errors.Wrap(os.Rename(filePath, filePath+".1"), "rotating log file")
}

// Debug logs debug-level messages.
func (l *SlogAdapter) Debug(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

// Info logs info-level messages.
func (l *SlogAdapter) Info(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

// Error logs error-level messages.
func (l *SlogAdapter) Error(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

// With returns a new logger with additional base key-value pairs.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (l *SlogAdapter) With(keysAndValues ...any) Logger {
	return &SlogAdapter{logger: l.logger.With(keysAndValues...), handler: l.handler}
}

// Slog exposes the underlying slog.Logger.
func (l *SlogAdapter) Slog() *slog.Logger {
	return l.logger
}

// Close closes the underlying log file, if any.
func (l *SlogAdapter) Close() error {
	if l.handler == nil {
		return nil
	}

	return l.handler.Close()
}

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug does nothing.
func (*NoOpLogger) Debug(string, ...any) {}

// Info does nothing.
func (*NoOpLogger) Info(string, ...any) {}

// Error does nothing.
func (*NoOpLogger) Error(string, ...any) {}

// With returns the same NoOpLogger.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (n *NoOpLogger) With(...any) Logger {
	return n
}
