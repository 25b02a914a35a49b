package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/weathermetrics/internal/models"
)

func TestCollector_Recorder(t *testing.T) {
	c := NewCollector()

	c.ReadingRecorded(weatherReading("s1", models.MetricTemp, models.MetricHumidity))
	c.ReadingRecorded(weatherReading("s1", models.MetricTemp))
	c.ReadingRecorded(weatherReading("s2", models.MetricWindSpeed))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.readingsRecorded))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metricsRecorded.WithLabelValues("Temp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metricsRecorded.WithLabelValues("Humidity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metricsRecorded.WithLabelValues("WindSpeed")))

	c.EventPublished(nil)
	c.EventPublished(errors.New("broker down"))
	c.EventPublished(nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.eventsPublished.WithLabelValues(resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsPublished.WithLabelValues(resultError)))

	c.StatisticsComputed(models.StatisticAvg, 3, 15*time.Millisecond)
	c.StatisticsComputed(models.StatisticMax, 1, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statisticsTotal.WithLabelValues("avg")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statisticsTotal.WithLabelValues("max")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.statisticsLatency))
}

func TestCollector_Middleware(t *testing.T) {
	c := NewCollector()

	app := fiber.New()
	app.Use(c.Middleware())
	app.Get("/things/:id", func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Params("id"))
	})
	app.Post("/fail", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "nope")
	})

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/things/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/things/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/fail", "418")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ReadingRecorded(weatherReading("s1", models.MetricTemp))

	app := fiber.New()
	app.Get("/metrics", c.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "weathermetrics_readings_recorded_total 1"), text)
	assert.Contains(t, text, `weathermetrics_metrics_recorded_total{metric_name="Temp"} 1`)
	assert.NotContains(t, text, "sensor_id")
	assert.Contains(t, text, "go_goroutines")
}

func TestCollector_Isolated(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.ReadingRecorded(weatherReading("s1", models.MetricTemp))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.readingsRecorded))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.readingsRecorded))
}

func TestCollector_SensorIDsDoNotCreateSeries(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 5000; i++ {
		c.ReadingRecorded(weatherReading(fmt.Sprintf("sensor-%d", i), models.MetricTemp))
	}

	assert.Equal(t, 1, testutil.CollectAndCount(c.readingsRecorded))
	assert.Equal(t, 1, testutil.CollectAndCount(c.metricsRecorded))
	assert.Equal(t, 5000.0, testutil.ToFloat64(c.readingsRecorded))
}

func weatherReading(sensorID string, names ...models.MetricName) models.Reading {
	r := models.Reading{SensorID: sensorID, Timestamp: time.Date(2024, 12, 14, 10, 0, 0, 0, time.UTC)}
	for _, name := range names {
		r.Metrics = append(r.Metrics, models.Metric{MetricName: name, MetricValue: 1})
	}
	return r
}
