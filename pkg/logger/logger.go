package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithChunk attaches a chunk index to the context so every log line emitted
// while processing that chunk carries it.
func WithChunk(ctx context.Context, chunk int) context.Context {
	return context.WithValue(ctx, contextKey{}, chunk)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if chunk, ok := ctx.Value(contextKey{}).(int); ok {
		logger = logger.With("chunk", chunk)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
