package services

import (
	"context"
	"fmt"
	"time"

	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/queue"
	"github.com/soltixdb/weathermetrics/internal/storage"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

// ReadingService handles reading ingest and retrieval
type ReadingService struct {
	logger    *logging.Logger
	store     storage.ReadingStore
	publisher queue.Publisher
	subject   string
	location  *time.Location
	recorder  Recorder
	now       func() time.Time
}

// NewReadingService creates a new ReadingService. Offset-less timestamps
// are read in location; events go to subject on publisher.
func NewReadingService(
	logger *logging.Logger,
	store storage.ReadingStore,
	publisher queue.Publisher,
	subject string,
	location *time.Location,
) *ReadingService {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	return &ReadingService{
		logger:    logger,
		store:     store,
		publisher: publisher,
		subject:   subject,
		location:  location,
		recorder:  nopRecorder{},
		now:       time.Now,
	}
}

// WithRecorder sets the measurement sink
func (s *ReadingService) WithRecorder(r Recorder) *ReadingService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// RecordReading validates and persists a reading, then announces it.
// Event publishing never fails the ingest.
func (s *ReadingService) RecordReading(ctx context.Context, req *models.ReadingRequest) (models.Reading, error) {
	reading, violations := req.Validate(s.location)
	if len(violations) > 0 {
		return models.Reading{}, NewValidationError(violations)
	}

	stored, err := s.store.Append(ctx, reading)
	if err != nil {
		logging.FromContext(ctx, s.logger).Error("Failed to store reading",
			"sensor_id", reading.SensorID,
			"error", err)
		return models.Reading{}, NewInternalError(fmt.Errorf("failed to store reading: %w", err))
	}

	s.recorder.ReadingRecorded(stored)
	s.publish(ctx, stored)

	logging.FromContext(ctx, s.logger).Debug("Reading recorded",
		"reading_id", stored.ID,
		"sensor_id", stored.SensorID,
		"metrics", len(stored.Metrics))

	return stored, nil
}

// publish sends the reading event. The request may finish before the
// broker answers, so the publish context is detached from its cancellation.
func (s *ReadingService) publish(ctx context.Context, reading models.Reading) {
	msg, err := queue.NewReadingMessage(s.subject, models.NewReadingEvent(reading, s.now()))
	if err == nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.EventPublishTimeout)
		err = s.publisher.Publish(pubCtx, msg)
		cancel()
	}

	s.recorder.EventPublished(err)
	if err != nil {
		logging.FromContext(ctx, s.logger).Warn("Failed to publish reading event",
			"reading_id", reading.ID,
			"sensor_id", reading.SensorID,
			"subject", s.subject,
			"error", err)
	}
}

// ListReadings returns the readings of the given sensors, or every reading
// when sensorIDs is empty, in store order
func (s *ReadingService) ListReadings(ctx context.Context, sensorIDs []string) ([]models.Reading, error) {
	readings, err := s.store.List(ctx, sensorIDs)
	if err != nil {
		logging.FromContext(ctx, s.logger).Error("Failed to list readings",
			"sensor_ids", sensorIDs,
			"error", err)
		return nil, NewInternalError(fmt.Errorf("failed to list readings: %w", err))
	}
	return readings, nil
}
