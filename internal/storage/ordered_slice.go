package storage

import (
	"sort"
	"time"

	"github.com/soltixdb/weathermetrics/internal/models"
)

// storedReading is a reading plus the insertion sequence used to break
// timestamp ties
type storedReading struct {
	seq     uint64
	reading models.Reading
}

func (s *storedReading) before(other *storedReading) bool {
	if s.reading.Timestamp.Equal(other.reading.Timestamp) {
		return s.seq < other.seq
	}
	return s.reading.Timestamp.Before(other.reading.Timestamp)
}

// orderedSlice keeps readings sorted by (timestamp, seq).
//
// NOT THREAD-SAFE: callers hold MemoryStore's lock.
type orderedSlice struct {
	points []*storedReading
}

func newOrderedSlice(capacity int) *orderedSlice {
	return &orderedSlice{points: make([]*storedReading, 0, capacity)}
}

// add inserts after every reading with an equal or earlier timestamp.
// Appends in timestamp order hit the O(1) fast path.
func (os *orderedSlice) add(sr *storedReading) {
	n := len(os.points)
	if n == 0 || !sr.reading.Timestamp.Before(os.points[n-1].reading.Timestamp) {
		os.points = append(os.points, sr)
		return
	}

	idx := sort.Search(n, func(i int) bool {
		return os.points[i].reading.Timestamp.After(sr.reading.Timestamp)
	})
	os.points = append(os.points, nil)
	copy(os.points[idx+1:], os.points[idx:])
	os.points[idx] = sr
}

// rangeOf returns the readings with timestamps within [start, end].
// The returned slice aliases internal storage.
func (os *orderedSlice) rangeOf(start, end time.Time) []*storedReading {
	startIdx := sort.Search(len(os.points), func(i int) bool {
		return !os.points[i].reading.Timestamp.Before(start)
	})
	endIdx := sort.Search(len(os.points), func(i int) bool {
		return os.points[i].reading.Timestamp.After(end)
	})
	if startIdx >= endIdx {
		return nil
	}
	return os.points[startIdx:endIdx]
}

func (os *orderedSlice) all() []*storedReading {
	return os.points
}

func (os *orderedSlice) size() int {
	return len(os.points)
}
