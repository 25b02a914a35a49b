package models

import (
	"fmt"
	"strings"
	"time"
)

// MetricName identifies one kind of weather measurement
type MetricName string

const (
	MetricTemp      MetricName = "Temp"
	MetricHumidity  MetricName = "Humidity"
	MetricWindSpeed MetricName = "WindSpeed"
)

// AllowedMetricNames lists every accepted metric name in canonical order
var AllowedMetricNames = []MetricName{MetricTemp, MetricHumidity, MetricWindSpeed}

// Valid reports whether n is one of the allowed metric names (case-sensitive)
func (n MetricName) Valid() bool {
	switch n {
	case MetricTemp, MetricHumidity, MetricWindSpeed:
		return true
	}
	return false
}

// ParseMetricNames validates a metric name filter. Every provided name is
// echoed in the error when any of them is not allowed.
func ParseMetricNames(names []string) ([]MetricName, error) {
	parsed := make([]MetricName, 0, len(names))
	invalid := false
	for _, name := range names {
		n := MetricName(name)
		if !n.Valid() {
			invalid = true
		}
		parsed = append(parsed, n)
	}
	if invalid {
		return nil, fmt.Errorf("Invalid metric name(s) provided: [%s]", strings.Join(names, ", "))
	}
	return parsed, nil
}

// Metric is a single named measurement within a reading
type Metric struct {
	MetricName  MetricName `json:"metricName"`
	MetricValue float64    `json:"metricValue"`
	Unit        string     `json:"unit,omitempty"`
}

// Reading is one sensor's full set of metric values at one point in time.
// ID is assigned by the store and never exposed through the HTTP API.
type Reading struct {
	ID        string    `json:"-"`
	SensorID  string    `json:"sensorId"`
	Timestamp time.Time `json:"timestamp"`
	Metrics   []Metric  `json:"metrics"`
}

// Clone returns a deep copy of the reading
func (r Reading) Clone() Reading {
	out := r
	out.Metrics = append([]Metric(nil), r.Metrics...)
	return out
}

// KeepMetrics returns a copy holding only the metrics whose name is in names.
// The boolean is false when no metric survives.
func (r Reading) KeepMetrics(names map[MetricName]struct{}) (Reading, bool) {
	out := r
	out.Metrics = make([]Metric, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		if _, ok := names[m.MetricName]; ok {
			out.Metrics = append(out.Metrics, m)
		}
	}
	return out, len(out.Metrics) > 0
}

// ReadingEvent is published after a reading has been persisted
type ReadingEvent struct {
	ID         string    `json:"id"`
	SensorID   string    `json:"sensorId"`
	Timestamp  time.Time `json:"timestamp"`
	Metrics    []Metric  `json:"metrics"`
	RecordedAt time.Time `json:"recordedAt"`
}

// NewReadingEvent builds the event payload for a stored reading
func NewReadingEvent(r Reading, recordedAt time.Time) ReadingEvent {
	return ReadingEvent{
		ID:         r.ID,
		SensorID:   r.SensorID,
		Timestamp:  r.Timestamp,
		Metrics:    r.Metrics,
		RecordedAt: recordedAt.UTC(),
	}
}
