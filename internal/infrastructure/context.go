package infrastructure

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"demandboard/pkg/contracts/domain"
)

type contextKey int

const (
	traceIDKey contextKey = iota
	logAttrsKey
)

// WithTraceID stores a trace ID for loggers and WebSocket messages
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the stored trace ID, falling back to the active
// OpenTelemetry span
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return TraceIDFromContext(ctx)
}

// EnsureTraceID stores a fresh UUID unless ctx already has a trace ID
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}

// WithLogAttrs returns a context whose log records also carry attrs
func WithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	merged := append(slices.Clip(logAttrs(ctx)), attrs...)
	return context.WithValue(ctx, logAttrsKey, merged)
}

// WithEvaluation tags every record logged under ctx with the evaluation
// source and the selection being evaluated
func WithEvaluation(ctx context.Context, source string, criteria domain.FilterCriteria) context.Context {
	return WithLogAttrs(ctx, slog.Group("evaluation",
		slog.String("source", source),
		slog.Any("products", criteria.Products),
		slog.String("from", criteria.Start.Format(domain.DateLayout)),
		slog.String("to", criteria.End.Format(domain.DateLayout)),
	))
}

func logAttrs(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(logAttrsKey).([]slog.Attr)
	return attrs
}

// WithComponent derives a component logger; a nil logger means GetLogger
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With(slog.String("component", component))
}
