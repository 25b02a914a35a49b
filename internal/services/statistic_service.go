package services

import (
	"context"
	"fmt"
	"time"

	"github.com/soltixdb/weathermetrics/internal/aggregation"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/storage"
)

// StatisticService resolves statistics queries and aggregates readings
type StatisticService struct {
	logger   *logging.Logger
	store    storage.ReadingStore
	lookback time.Duration
	recorder Recorder
	now      func() time.Time
}

// NewStatisticService creates a new StatisticService. lookback is the
// window width used when a query has no start.
func NewStatisticService(logger *logging.Logger, store storage.ReadingStore, lookback time.Duration) *StatisticService {
	return &StatisticService{
		logger:   logger,
		store:    store,
		lookback: lookback,
		recorder: nopRecorder{},
		now:      time.Now,
	}
}

// WithRecorder sets the measurement sink
func (s *StatisticService) WithRecorder(r Recorder) *StatisticService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithClock replaces the clock used for default windows
func (s *StatisticService) WithClock(now func() time.Time) *StatisticService {
	if now != nil {
		s.now = now
	}
	return s
}

// Resolve validates a query and applies defaults. Metric names are checked
// before the statistic. An inverted window is not an error; it matches
// nothing.
func (s *StatisticService) Resolve(q models.StatisticQuery) (models.StatisticRequest, error) {
	var req models.StatisticRequest

	if len(q.MetricNames) > 0 {
		names, err := models.ParseMetricNames(q.MetricNames)
		if err != nil {
			return req, NewInvalidArgument(err.Error())
		}
		req.MetricNames = names
	}

	req.Statistic = models.DefaultStatistic
	if q.Statistic != "" {
		stat, err := models.ParseStatistic(q.Statistic)
		if err != nil {
			return req, NewInvalidArgument(err.Error())
		}
		req.Statistic = stat
	}

	now := s.now().UTC()
	req.End = now
	if q.End != nil {
		req.End = q.End.UTC()
	}
	req.Start = now.Add(-s.lookback)
	if q.Start != nil {
		req.Start = q.Start.UTC()
	}

	req.SensorIDs = q.SensorIDs
	return req, nil
}

// Compute resolves the query, fetches matching readings and aggregates them
// per sensor. It never writes to the store.
func (s *StatisticService) Compute(ctx context.Context, q models.StatisticQuery) ([]models.SensorStatistic, error) {
	startTime := time.Now()

	req, err := s.Resolve(q)
	if err != nil {
		return nil, err
	}

	readings, err := s.store.ListBetween(ctx, req.SensorIDs, req.Start, req.End)
	if err != nil {
		logging.FromContext(ctx, s.logger).Error("Failed to fetch readings for statistics",
			"sensor_ids", req.SensorIDs,
			"error", err)
		return nil, NewInternalError(fmt.Errorf("failed to fetch readings: %w", err))
	}

	readings = filterMetrics(readings, req.MetricFilter())
	result := aggregation.Aggregate(readings, req.Statistic)

	elapsed := time.Since(startTime)
	s.recorder.StatisticsComputed(req.Statistic, len(result), elapsed)
	logging.FromContext(ctx, s.logger).Info("Statistics computed",
		"statistic", req.Statistic.String(),
		"metric_names", req.MetricNames,
		"sensor_ids", req.SensorIDs,
		"start", req.Start.Format(time.RFC3339),
		"end", req.End.Format(time.RFC3339),
		"readings", len(readings),
		"sensors", len(result),
		"latency_ms", elapsed.Milliseconds())

	return result, nil
}

// filterMetrics keeps only metrics named in filter and drops readings left
// without metrics. A nil filter keeps everything.
func filterMetrics(readings []models.Reading, filter map[models.MetricName]struct{}) []models.Reading {
	if filter == nil {
		return readings
	}
	out := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		if kept, ok := r.KeepMetrics(filter); ok {
			out = append(out, kept)
		}
	}
	return out
}
