package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/handlers"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/metrics"
	"github.com/soltixdb/weathermetrics/internal/middleware"
)

// Setup configures all routes and middlewares. collector may be nil when
// metrics are disabled.
func Setup(app *fiber.App, logger *logging.Logger, h *handlers.Handler, collector *metrics.Collector, cfg config.Config) {
	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))
	if collector != nil {
		app.Use(collector.Middleware())
		app.Get(cfg.Metrics.Path, collector.Handler())
	}

	app.Get("/health", h.Health)

	// Weather metric routes
	weather := app.Group("/api/v1/weather")
	weather.Post("/metric", h.RecordReading)
	weather.Get("/metric", h.ListReadings)
	weather.Get("/metric/statistic", h.Statistics)

	// 404 handler
	app.Use(h.NotFound)
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, h *handlers.Handler, collector *metrics.Collector, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Weather Metrics",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             cfg.Server.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, h, collector, cfg)

	return app
}
