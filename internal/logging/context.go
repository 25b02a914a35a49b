package logging

import (
	"context"
)

type ctxKey int

const (
	loggerCtxKey ctxKey = iota
	requestIDCtxKey
)

// WithLogger stores logger in ctx
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// FromContext returns the request logger stored in ctx by FiberMiddleware.
// Without one it falls back to fallback (or the global logger) carrying the
// request fields found in ctx.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerCtxKey).(*Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback == nil {
		fallback = global
	}
	return fallback.WithContext(ctx)
}

// WithRequestID stores the correlation id of the current request
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey, requestID)
}

// RequestID returns the request ID stored in ctx, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// extractContextFields returns the key/value pairs WithContext attaches
func extractContextFields(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	if id := RequestID(ctx); id != "" {
		return []interface{}{"request_id", id}
	}
	return nil
}
