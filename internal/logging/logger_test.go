package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]interface{}
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestLogger_FieldsAndLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWithWriter(buf, zerolog.InfoLevel)

	logger.Debug("hidden", "k", "v")
	logger.Info("Reading recorded", "sensor_id", "s1", "metrics", 3)
	logger.Warn("Publish failed", "error", errors.New("broker down"), "latency", 2*time.Second)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "Reading recorded", lines[0]["message"])
	assert.Equal(t, "s1", lines[0]["sensor_id"])
	assert.Equal(t, float64(3), lines[0]["metrics"])

	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "broker down", lines[1]["error"])
	assert.Contains(t, lines[1], "latency")
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewWithWriter(buf, zerolog.DebugLevel)
	child := base.With("component", "storage.redis")

	child.Info("connected", "addr", "localhost:6379")
	base.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "storage.redis", lines[0]["component"])
	assert.Equal(t, "localhost:6379", lines[0]["addr"])
	assert.NotContains(t, lines[1], "component")
}

func TestLogger_Named(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithWriter(buf, zerolog.InfoLevel).Named("storage.memory").Info("Memory store initialized")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "storage.memory", lines[0]["component"])
}

func TestLogger_OddFieldsIgnored(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWithWriter(buf, zerolog.DebugLevel)

	logger.Info("odd", "dangling")
	logger.Info("bad key", 42, "value")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "dangling")
	assert.Len(t, lines[1], 3) // level, time, message
}

func TestLogger_WithContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWithWriter(buf, zerolog.DebugLevel)

	ctx := WithRequestID(context.Background(), "req-123")
	logger.WithContext(ctx).Info("scoped")
	assert.Same(t, logger, logger.WithContext(context.Background()))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-123", lines[0]["request_id"])
}

func TestFromContext(t *testing.T) {
	stored := NewNop()
	fallback := NewNop()

	assert.Same(t, stored, FromContext(WithLogger(context.Background(), stored), fallback))
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.Same(t, Global(), FromContext(context.Background(), nil))

	buf := &bytes.Buffer{}
	ctx := WithRequestID(context.Background(), "req-9")
	FromContext(ctx, NewWithWriter(buf, zerolog.InfoLevel)).Info("fallback keeps request id")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-9", lines[0]["request_id"])
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "weather.log")
	logger, err := NewFromConfig(config.LoggingConfig{
		Level:      "warn",
		Format:     "json",
		OutputPath: path,
	})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "sensor_id", "s9")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"sensor_id":"s9"`)
}

func TestFiberMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWithWriter(buf, zerolog.DebugLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(logger))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/echo", func(c *fiber.Ctx) error {
		return c.SendString(RequestID(c.UserContext()))
	})
	app.Get("/bad", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusBadRequest) })

	// Request id is generated and propagated to the handler
	resp, err := app.Test(httptest.NewRequest("GET", "/echo", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, resp.Header.Get(RequestIDHeader), string(body))

	// Incoming request id is kept
	req := httptest.NewRequest("GET", "/bad", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", resp.Header.Get(RequestIDHeader))

	// Skipped path is not logged
	_, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Request completed", lines[0]["message"])
	assert.Equal(t, "Client error", lines[1]["message"])
	assert.Equal(t, "fixed-id", lines[1]["request_id"])
	assert.Equal(t, float64(400), lines[1]["status"])
}

func TestFiberMiddleware_RequestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewWithWriter(buf, zerolog.InfoLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(logger))
	app.Get("/work", func(c *fiber.Ctx) error {
		FromContext(c.UserContext(), nil).Info("Handling work")
		return c.SendString("done")
	})

	req := httptest.NewRequest("GET", "/work", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	_, err := app.Test(req)
	require.NoError(t, err)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Handling work", lines[0]["message"])
	assert.Equal(t, "req-42", lines[0]["request_id"])
}
