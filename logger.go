package vecidx

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with index specific helpers.
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
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithGraph adds a graph name field to the logger.
func (l *Logger) WithGraph(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("graph", name),
	}
}

// WithK adds a k (candidate count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// LogCreateGraph logs the creation of a graph.
func (l *Logger) LogCreateGraph(ctx context.Context, name string, vectorSize int, metric string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create graph failed",
			"graph", name,
			"vector_size", vectorSize,
			"metric", metric,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "graph created",
		"graph", name,
		"vector_size", vectorSize,
		"metric", metric,
	)
}

// LogCommit logs a registration commit.
func (l *Logger) LogCommit(ctx context.Context, name string, stats CommitStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"graph", name,
			"nodes_created", stats.NodesCreated,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "commit completed",
		"graph", name,
		"nodes_created", stats.NodesCreated,
		"postings_merged", stats.PostingsMerged,
		"nodes_written", stats.NodesWritten,
		"operations", stats.Operations,
	)
}

// LogSearch logs a search operation. Graph and k come from WithGraph and
// WithK.
func (l *Logger) LogSearch(ctx context.Context, exact bool, candidates int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"exact", exact,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"exact", exact,
		"candidates", candidates,
	)
}
