// Package storage persists weather readings and serves them back in
// timestamp order.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// ErrStoreClosed is returned by operations on a closed store
var ErrStoreClosed = errors.New("reading store is closed")

// ReadingStore is the interface for reading storage backends.
//
// Every List variant returns readings ordered by timestamp ascending, with
// readings sharing a timestamp kept in insertion order.
type ReadingStore interface {
	// Append persists a reading, assigning its ID. The stored copy is returned.
	Append(ctx context.Context, reading models.Reading) (models.Reading, error)

	// List returns the readings of the given sensors (empty = all sensors)
	List(ctx context.Context, sensorIDs []string) ([]models.Reading, error)

	// ListBetween returns the readings of the given sensors (empty = all
	// sensors) whose timestamp lies within [start, end]
	ListBetween(ctx context.Context, sensorIDs []string, start, end time.Time) ([]models.Reading, error)

	// Close releases the backend connection
	Close() error
}

// newReadingID returns a time-ordered UUIDv7, falling back to a random UUID
func newReadingID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// prepareReading returns the copy of r that a backend stores: a fresh ID,
// a UTC timestamp and no aliasing with the caller's metric slice.
func prepareReading(r models.Reading) models.Reading {
	out := r.Clone()
	out.ID = newReadingID()
	out.Timestamp = r.Timestamp.UTC()
	return out
}

// sensorSet turns a sensor filter into a lookup set. Nil means no filter.
func sensorSet(sensorIDs []string) map[string]struct{} {
	if len(sensorIDs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(sensorIDs))
	for _, id := range sensorIDs {
		set[id] = struct{}{}
	}
	return set
}

// uniqueSensors removes duplicate ids, keeping the first occurrence
func uniqueSensors(sensorIDs []string) []string {
	seen := make(map[string]struct{}, len(sensorIDs))
	out := make([]string, 0, len(sensorIDs))
	for _, id := range sensorIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
