package handlers

import (
	"context"
	"time"

	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// ReadingService is the ingest and retrieval side used by the handlers
type ReadingService interface {
	RecordReading(ctx context.Context, req *models.ReadingRequest) (models.Reading, error)
	ListReadings(ctx context.Context, sensorIDs []string) ([]models.Reading, error)
}

// StatisticService computes per-sensor statistics
type StatisticService interface {
	Compute(ctx context.Context, q models.StatisticQuery) ([]models.SensorStatistic, error)
}

// Info describes the running service for the health endpoint and for
// interpreting offset-less query dates
type Info struct {
	Version  string
	Storage  string
	Location *time.Location
}

// Handler contains all HTTP handlers
type Handler struct {
	logger     *logging.Logger
	readings   ReadingService
	statistics StatisticService
	info       Info
}

// New creates a new handler instance
func New(logger *logging.Logger, readings ReadingService, statistics StatisticService, info Info) *Handler {
	if info.Location == nil {
		info.Location = time.UTC
	}
	return &Handler{
		logger:     logger,
		readings:   readings,
		statistics: statistics,
		info:       info,
	}
}
