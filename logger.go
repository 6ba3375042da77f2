package vecrow

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with dataset-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithDataset adds the dataset base path to the logger.
func (l *Logger) WithDataset(base string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", base),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogOpen logs opening a reader or writer.
func (l *Logger) LogOpen(ctx context.Context, mode string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"mode", mode,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "dataset opened",
		"mode", mode,
	)
}

// LogClose logs releasing a reader or writer.
func (l *Logger) LogClose(ctx context.Context, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed",
			"rows", rows,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "dataset closed",
		"rows", rows,
	)
}

// LogExportProgress logs a periodic export progress notice.
func (l *Logger) LogExportProgress(ctx context.Context, rows int, elapsed time.Duration) {
	l.InfoContext(ctx, "export progress",
		"rows", rows,
		"elapsed", elapsed,
	)
}

// LogTransfer logs an upload or download of a dataset.
func (l *Logger) LogTransfer(ctx context.Context, direction, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "transfer failed",
			"direction", direction,
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "transfer completed",
		"direction", direction,
		"name", name,
		"bytes", bytes,
	)
}

// LogLenientFill logs rows left zero-filled by a lenient ReadAll.
func (l *Logger) LogLenientFill(ctx context.Context, expected, filled int) {
	l.WarnContext(ctx, "metadata stream shorter than binary stream, rows left zero-filled",
		"expected", expected,
		"filled", filled,
	)
}
