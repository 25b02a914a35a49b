// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the reading services.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soltixdb/weathermetrics/internal/models"
)

const (
	metricPrefix = "weathermetrics_"

	resultSuccess = "success"
	resultError   = "error"
)

// Collector owns a registry and every weathermetrics series.
// It satisfies services.Recorder.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	readingsRecorded  prometheus.Counter
	metricsRecorded   *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	statisticsTotal   *prometheus.CounterVec
	statisticsLatency *prometheus.HistogramVec
	statisticsSensors prometheus.Histogram
}

// NewCollector creates a Collector with its own registry. Go runtime and
// process collectors are registered alongside.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		readingsRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_recorded_total",
				Help: "Total readings persisted",
			},
		),
		metricsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "metrics_recorded_total",
				Help: "Total metric values persisted by metric name",
			},
			[]string{"metric_name"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_published_total",
				Help: "Total reading events published by result",
			},
			[]string{"result"},
		),
		statisticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statistics_queries_total",
				Help: "Total statistics queries by statistic",
			},
			[]string{"statistic"},
		),
		statisticsLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statistics_latency_seconds",
				Help:    "Statistics computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"statistic"},
		),
		statisticsSensors: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statistics_sensors",
				Help:    "Number of sensors in a statistics response",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpLatency,
		c.readingsRecorded,
		c.metricsRecorded,
		c.eventsPublished,
		c.statisticsTotal,
		c.statisticsLatency,
		c.statisticsSensors,
	)

	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ReadingRecorded counts a persisted reading and its metric values.
// Sensor ids are client chosen and never become labels; metric names are
// a closed set validated at ingest.
func (c *Collector) ReadingRecorded(reading models.Reading) {
	c.readingsRecorded.Inc()
	for _, m := range reading.Metrics {
		c.metricsRecorded.WithLabelValues(string(m.MetricName)).Inc()
	}
}

// EventPublished counts a publish attempt by outcome
func (c *Collector) EventPublished(err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.eventsPublished.WithLabelValues(result).Inc()
}

// StatisticsComputed records one statistics query
func (c *Collector) StatisticsComputed(stat models.Statistic, sensors int, elapsed time.Duration) {
	c.statisticsTotal.WithLabelValues(stat.String()).Inc()
	c.statisticsLatency.WithLabelValues(stat.String()).Observe(elapsed.Seconds())
	c.statisticsSensors.Observe(float64(sensors))
}

// Middleware returns a Fiber middleware that records request count and latency.
// The matched route pattern is used as label to keep cardinality bounded.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()

		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := "unmatched"
		if r := ctx.Route(); r != nil && r.Path != "/" && r.Path != "" {
			route = r.Path
		}
		method := ctx.Method()

		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		c.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns the exposition endpoint for the registry
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
