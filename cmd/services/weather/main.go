package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/handlers"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/metrics"
	"github.com/soltixdb/weathermetrics/internal/queue"
	"github.com/soltixdb/weathermetrics/internal/router"
	"github.com/soltixdb/weathermetrics/internal/services"
	"github.com/soltixdb/weathermetrics/internal/storage"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Weather metrics service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open reading store
	logger.Info("Opening reading store", "type", cfg.Storage.Type)
	store, err := storage.NewReadingStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open reading store", "error", err)
	}
	defer func() { _ = store.Close() }()

	// Connect event publisher (none disables events)
	logger.Info("Connecting event publisher", "type", cfg.Queue.Type, "subject", cfg.Queue.Subject)
	publisher, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect event publisher", "error", err)
	}
	defer func() { _ = publisher.Close() }()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	location := cfg.Query.Location()
	readingService := services.NewReadingService(logger, store, publisher, cfg.Queue.Subject, location)
	statisticService := services.NewStatisticService(logger, store, cfg.Query.Lookback())
	if collector != nil {
		readingService.WithRecorder(collector)
		statisticService.WithRecorder(collector)
	}

	h := handlers.New(logger, readingService, statisticService, handlers.Info{
		Version:  Version,
		Storage:  cfg.Storage.Type,
		Location: location,
	})
	app := router.New(logger, h, collector, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.Server.ListenAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
