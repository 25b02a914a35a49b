package aggregation

import (
	"fmt"

	"github.com/soltixdb/weathermetrics/internal/models"
)

// AggregatedField accumulates the values of one metric name
type AggregatedField struct {
	Count int64   // Number of values
	Sum   float64 // Sum of values
	Min   float64 // Minimum, meaningful only when Count > 0
	Max   float64 // Maximum, meaningful only when Count > 0
}

// NewAggregatedField creates a new aggregated field from a single value
func NewAggregatedField(value float64) *AggregatedField {
	return &AggregatedField{
		Count: 1,
		Sum:   value,
		Min:   value,
		Max:   value,
	}
}

// AddValue adds a single value
func (af *AggregatedField) AddValue(value float64) {
	if af.Count == 0 {
		af.Min = value
		af.Max = value
	} else {
		if value < af.Min {
			af.Min = value
		}
		if value > af.Max {
			af.Max = value
		}
	}
	af.Count++
	af.Sum += value
}

// Avg returns the arithmetic mean, 0 when empty
func (af *AggregatedField) Avg() float64 {
	if af.Count == 0 {
		return 0
	}
	return af.Sum / float64(af.Count)
}

// Value returns the requested statistic. An empty field yields 0 for every
// statistic.
func (af *AggregatedField) Value(stat models.Statistic) float64 {
	if af.Count == 0 {
		return 0
	}
	switch stat {
	case models.StatisticMin:
		return af.Min
	case models.StatisticMax:
		return af.Max
	case models.StatisticAvg:
		return af.Avg()
	case models.StatisticSum:
		return af.Sum
	}
	// Statistics are parsed at the API boundary; reaching here is a programming error
	panic(fmt.Sprintf("aggregation: unsupported statistic %v", stat))
}
