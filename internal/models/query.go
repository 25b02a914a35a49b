package models

import (
	"time"
)

// StatisticQuery carries the optional, unvalidated filters of a statistics request
type StatisticQuery struct {
	MetricNames []string
	SensorIDs   []string
	Statistic   string     // empty means DefaultStatistic
	Start       *time.Time // nil means now minus the lookback window
	End         *time.Time // nil means now
}

// StatisticRequest is a validated statistics query with defaults applied
type StatisticRequest struct {
	MetricNames []MetricName // empty means every metric
	SensorIDs   []string     // empty means every sensor
	Statistic   Statistic
	Start       time.Time
	End         time.Time
}

// MetricFilter returns the metric names as a set, or nil when no filter applies
func (r StatisticRequest) MetricFilter() map[MetricName]struct{} {
	if len(r.MetricNames) == 0 {
		return nil
	}
	set := make(map[MetricName]struct{}, len(r.MetricNames))
	for _, n := range r.MetricNames {
		set[n] = struct{}{}
	}
	return set
}
