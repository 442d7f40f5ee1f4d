package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const requestIDKey contextKey = "hostbridge.request_id"

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ForRequest returns l enriched with the request ID carried by ctx.
// A nil l means the default logger.
func ForRequest(ctx context.Context, l *slog.Logger) *slog.Logger {
	l = OrDefault(l)
	if id := RequestIDFromContext(ctx); id != "" {
		return l.With("request_id", id)
	}
	return l
}
