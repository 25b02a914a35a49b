package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// MemoryStore is an in-memory reading store.
// All readings live in one ordered slice; a per-sensor index of ordered
// slices serves sensor-filtered lookups without scanning other sensors.
type MemoryStore struct {
	mu       sync.RWMutex
	all      *orderedSlice
	bySensor map[string]*orderedSlice
	nextSeq  uint64
	closed   bool
	logger   *logging.Logger
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(logger *logging.Logger) *MemoryStore {
	if logger == nil {
		logger = logging.Global()
	}
	logger = logger.Named("storage.memory")
	logger.Info("Memory store initialized")
	return &MemoryStore{
		all:      newOrderedSlice(1024),
		bySensor: make(map[string]*orderedSlice),
		logger:   logger,
	}
}

// Append adds a reading to the store
func (ms *MemoryStore) Append(ctx context.Context, reading models.Reading) (models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return models.Reading{}, err
	}

	stored := prepareReading(reading)

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return models.Reading{}, ErrStoreClosed
	}

	ms.nextSeq++
	sr := &storedReading{seq: ms.nextSeq, reading: stored}
	ms.all.add(sr)

	idx, ok := ms.bySensor[stored.SensorID]
	if !ok {
		idx = newOrderedSlice(16)
		ms.bySensor[stored.SensorID] = idx
	}
	idx.add(sr)

	return stored.Clone(), nil
}

// List returns the readings of the given sensors, or all readings
func (ms *MemoryStore) List(ctx context.Context, sensorIDs []string) ([]models.Reading, error) {
	return ms.collect(ctx, sensorIDs, func(os *orderedSlice) []*storedReading {
		return os.all()
	})
}

// ListBetween returns readings with timestamps within [start, end]
func (ms *MemoryStore) ListBetween(ctx context.Context, sensorIDs []string, start, end time.Time) ([]models.Reading, error) {
	return ms.collect(ctx, sensorIDs, func(os *orderedSlice) []*storedReading {
		return os.rangeOf(start, end)
	})
}

func (ms *MemoryStore) collect(ctx context.Context, sensorIDs []string, pick func(*orderedSlice) []*storedReading) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	if len(sensorIDs) == 0 {
		return cloneReadings(pick(ms.all)), nil
	}

	var matched []*storedReading
	for _, id := range uniqueSensors(sensorIDs) {
		idx, ok := ms.bySensor[id]
		if !ok {
			continue
		}
		matched = append(matched, pick(idx)...)
	}

	// Each per-sensor slice is already sorted; merge them back into store order
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].before(matched[j])
	})

	return cloneReadings(matched), nil
}

// Len returns the number of stored readings
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.all.size()
}

// SensorCount returns the number of distinct sensors seen
func (ms *MemoryStore) SensorCount() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.bySensor)
}

// Close drops all readings. Further calls return ErrStoreClosed.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return nil
	}
	ms.closed = true
	ms.all = newOrderedSlice(0)
	ms.bySensor = make(map[string]*orderedSlice)

	ms.logger.Info("Memory store closed")
	return nil
}

func cloneReadings(points []*storedReading) []models.Reading {
	out := make([]models.Reading, 0, len(points))
	for _, sr := range points {
		out = append(out, sr.reading.Clone())
	}
	return out
}
