package models

import (
	"time"
)

// Validation messages for reading ingest
const (
	MsgSensorIDNull       = "Sensor ID cannot be null"
	MsgSensorIDEmpty      = "Sensor ID cannot be empty"
	MsgTimestampNull      = "Timestamp cannot be null"
	MsgTimestampFormat    = "Timestamp must be an ISO-8601 date-time"
	MsgMetricsNull        = "Metrics list cannot be null"
	MsgMetricsEmpty       = "Metrics list must have at least one metric"
	MsgMetricNameNull     = "metricName cannot be null"
	MsgMetricNameEmpty    = "metricName cannot be empty"
	MsgMetricNamePattern  = "metricName must be either 'Temp' or 'Humidity' or WindSpeed"
	MsgMetricValueMissing = "Metric value cannot be null"
)

// ReadingRequest is the ingest body. Pointer fields distinguish absent or
// null JSON values from empty ones.
type ReadingRequest struct {
	SensorID  *string         `json:"sensorId"`
	Timestamp *string         `json:"timestamp"`
	Metrics   []MetricRequest `json:"metrics"`
}

// MetricRequest is one metric of an ingest body
type MetricRequest struct {
	MetricName  *string  `json:"metricName"`
	MetricValue *float64 `json:"metricValue"`
	Unit        *string  `json:"unit"`
}

// Validate checks the request and converts it to a Reading. Offset-less
// timestamps are read in loc. It returns one message per violated constraint
// in field order; the Reading is only meaningful when no messages are returned.
func (r *ReadingRequest) Validate(loc *time.Location) (Reading, []string) {
	var (
		reading  Reading
		messages []string
	)

	switch {
	case r.SensorID == nil:
		messages = append(messages, MsgSensorIDNull, MsgSensorIDEmpty)
	case *r.SensorID == "":
		messages = append(messages, MsgSensorIDEmpty)
	default:
		reading.SensorID = *r.SensorID
	}

	if r.Timestamp == nil {
		messages = append(messages, MsgTimestampNull)
	} else if ts, err := ParseTimestamp(*r.Timestamp, loc); err != nil {
		messages = append(messages, MsgTimestampFormat)
	} else {
		reading.Timestamp = ts
	}

	switch {
	case r.Metrics == nil:
		messages = append(messages, MsgMetricsNull)
	case len(r.Metrics) == 0:
		messages = append(messages, MsgMetricsEmpty)
	}

	reading.Metrics = make([]Metric, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		metric, msgs := m.validate()
		messages = append(messages, msgs...)
		reading.Metrics = append(reading.Metrics, metric)
	}

	return reading, messages
}

func (m MetricRequest) validate() (Metric, []string) {
	var (
		metric   Metric
		messages []string
	)

	switch {
	case m.MetricName == nil:
		messages = append(messages, MsgMetricNameNull, MsgMetricNameEmpty)
	case *m.MetricName == "":
		messages = append(messages, MsgMetricNameEmpty, MsgMetricNamePattern)
	case !MetricName(*m.MetricName).Valid():
		messages = append(messages, MsgMetricNamePattern)
	default:
		metric.MetricName = MetricName(*m.MetricName)
	}

	if m.MetricValue == nil {
		messages = append(messages, MsgMetricValueMissing)
	} else {
		metric.MetricValue = *m.MetricValue
	}

	if m.Unit != nil {
		metric.Unit = *m.Unit
	}

	return metric, messages
}
