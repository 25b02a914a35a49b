package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/queue"
	"github.com/soltixdb/weathermetrics/internal/storage"
)

// failingStore returns err from every operation
type failingStore struct {
	err error
}

func (f *failingStore) Append(context.Context, models.Reading) (models.Reading, error) {
	return models.Reading{}, f.err
}

func (f *failingStore) List(context.Context, []string) ([]models.Reading, error) {
	return nil, f.err
}

func (f *failingStore) ListBetween(context.Context, []string, time.Time, time.Time) ([]models.Reading, error) {
	return nil, f.err
}

func (f *failingStore) Close() error { return nil }

var _ storage.ReadingStore = (*failingStore)(nil)

// failingPublisher rejects every message
type failingPublisher struct {
	queue.NopPublisher
}

func (failingPublisher) Publish(context.Context, queue.Message) error {
	return errors.New("broker unavailable")
}

// captureRecorder remembers every measurement
type captureRecorder struct {
	mu         sync.Mutex
	recorded   []string
	published  []error
	statistics []models.Statistic
}

func (r *captureRecorder) ReadingRecorded(reading models.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, reading.SensorID)
}

func (r *captureRecorder) EventPublished(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, err)
}

func (r *captureRecorder) StatisticsComputed(stat models.Statistic, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statistics = append(r.statistics, stat)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func metricReq(name string, value float64) models.MetricRequest {
	return models.MetricRequest{MetricName: strPtr(name), MetricValue: floatPtr(value)}
}

func readingReq(sensor, ts string, metrics ...models.MetricRequest) *models.ReadingRequest {
	return &models.ReadingRequest{SensorID: strPtr(sensor), Timestamp: strPtr(ts), Metrics: metrics}
}

func newTestStore() *storage.MemoryStore {
	return storage.NewMemoryStore(logging.NewNop())
}
