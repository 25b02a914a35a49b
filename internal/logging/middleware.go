package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// MiddlewareConfig defines configuration for logging middleware
type MiddlewareConfig struct {
	// SkipPaths defines paths that get a request id but no access log line
	SkipPaths []string
}

// DefaultMiddlewareConfig returns default middleware configuration
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// FiberMiddleware returns a Fiber middleware for request logging
func FiberMiddleware(logger *Logger) fiber.Handler {
	return FiberMiddlewareWithConfig(logger, DefaultMiddlewareConfig())
}

// FiberMiddlewareWithConfig returns a Fiber middleware with custom config
func FiberMiddlewareWithConfig(logger *Logger, cfg MiddlewareConfig) fiber.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDHeader, requestID)

		ctx := WithRequestID(c.UserContext(), requestID)
		ctx = WithLogger(ctx, logger.With("request_id", requestID))
		c.SetUserContext(ctx)

		err := c.Next()

		if _, ok := skip[c.Path()]; ok && err == nil {
			return nil
		}

		duration := time.Since(start)
		statusCode := c.Response().StatusCode()
		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"ip", c.IP(),
			"status", statusCode,
			"duration", duration,
			"duration_ms", duration.Milliseconds(),
			"request_id", requestID,
		}

		if err != nil {
			fields = append(fields, "error", err)
			logger.Error("Request failed", fields...)
			return err
		}

		switch {
		case statusCode >= fiber.StatusInternalServerError:
			logger.Error("Server error", fields...)
		case statusCode >= fiber.StatusBadRequest:
			logger.Warn("Client error", fields...)
		default:
			logger.Info("Request completed", fields...)
		}

		return nil
	}
}
