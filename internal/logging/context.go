package logging

import (
	"context"
	"log/slog"
	"os"
)

type operationLoggerContextKey struct{}

// FromContext returns the logger carried by the context, or a fallback JSON
// logger when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(operationLoggerContextKey{}).(*slog.Logger)
	if !ok || logger == nil {
		fallback := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		fallback = fallback.With(slog.String("logger", "fallback"))
		return fallback
	}
	return logger
}

func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, operationLoggerContextKey{}, logger)
}

// AddMetaToContext attaches the given attrs to the context logger. Used to
// carry per-handle metadata through a resolution.
func AddMetaToContext(ctx context.Context, args ...slog.Attr) context.Context {
	logger := FromContext(ctx)

	anySlice := make([]any, len(args))
	for i, arg := range args {
		anySlice[i] = arg
	}

	return AddToContext(ctx, logger.With(anySlice...))
}
