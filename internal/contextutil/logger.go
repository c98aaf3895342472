package contextutil

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger returns a context carrying the given logger. Request
// middleware attaches a logger annotated with request attributes so
// that pipeline and ingestion logs stay correlated per request.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the process
// default logger when none was attached. Safe to call from any layer.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
