package models

import (
	"fmt"
	"time"
)

// Statistic is the aggregation applied across metric values sharing a name.
// The zero value is not a valid statistic; use ParseStatistic.
type Statistic uint8

const (
	StatisticMin Statistic = iota + 1
	StatisticMax
	StatisticAvg
	StatisticSum
)

// DefaultStatistic is used when a query names no statistic
const DefaultStatistic = StatisticAvg

var statisticNames = map[Statistic]string{
	StatisticMin: "min",
	StatisticMax: "max",
	StatisticAvg: "avg",
	StatisticSum: "sum",
}

// ParseStatistic converts a lower-case statistic name
func ParseStatistic(s string) (Statistic, error) {
	for stat, name := range statisticNames {
		if name == s {
			return stat, nil
		}
	}
	return 0, fmt.Errorf("Invalid statistic name(s) provided: %s", s)
}

func (s Statistic) String() string {
	if name, ok := statisticNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Statistic(%d)", uint8(s))
}

// Valid reports whether s is one of the four statistics
func (s Statistic) Valid() bool {
	_, ok := statisticNames[s]
	return ok
}

// MarshalText encodes the statistic as its name
func (s Statistic) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid statistic %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a statistic name
func (s *Statistic) UnmarshalText(text []byte) error {
	parsed, err := ParseStatistic(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MetricStatistic is the computed value of one metric name for one sensor
type MetricStatistic struct {
	MetricName  MetricName `json:"metricName"`
	MetricValue float64    `json:"metricValue"`
	Statistic   Statistic  `json:"statistic"`
}

// SensorStatistic holds the statistics of one sensor. Timestamp is the
// timestamp of the first contributing reading in store order.
type SensorStatistic struct {
	SensorID  string            `json:"sensorId"`
	Timestamp time.Time         `json:"timestamp"`
	Metrics   []MetricStatistic `json:"metrics"`
}
