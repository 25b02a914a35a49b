// Package aggregation computes per-sensor statistics over weather readings.
package aggregation

import (
	"time"

	"github.com/soltixdb/weathermetrics/internal/models"
)

// sensorGroup collects the metrics of one sensor in first-seen order
type sensorGroup struct {
	sensorID  string
	timestamp time.Time
	names     []models.MetricName
	fields    map[models.MetricName]*AggregatedField
}

func (g *sensorGroup) add(m models.Metric) {
	field, ok := g.fields[m.MetricName]
	if !ok {
		g.fields[m.MetricName] = NewAggregatedField(m.MetricValue)
		g.names = append(g.names, m.MetricName)
		return
	}
	field.AddValue(m.MetricValue)
}

// Aggregate groups readings by sensor and computes stat for every metric name
// seen for that sensor.
//
// Sensors appear in the order of their first reading, and each sensor's
// timestamp is the timestamp of that first reading. Metric names keep the
// order in which they were first seen for the sensor. A reading without
// metrics still creates its sensor entry.
func Aggregate(readings []models.Reading, stat models.Statistic) []models.SensorStatistic {
	if len(readings) == 0 {
		return []models.SensorStatistic{}
	}

	var order []*sensorGroup
	groups := make(map[string]*sensorGroup)

	for _, r := range readings {
		g, ok := groups[r.SensorID]
		if !ok {
			g = &sensorGroup{
				sensorID:  r.SensorID,
				timestamp: r.Timestamp,
				fields:    make(map[models.MetricName]*AggregatedField),
			}
			groups[r.SensorID] = g
			order = append(order, g)
		}
		for _, m := range r.Metrics {
			g.add(m)
		}
	}

	result := make([]models.SensorStatistic, 0, len(order))
	for _, g := range order {
		metrics := make([]models.MetricStatistic, 0, len(g.names))
		for _, name := range g.names {
			metrics = append(metrics, models.MetricStatistic{
				MetricName:  name,
				MetricValue: g.fields[name].Value(stat),
				Statistic:   stat,
			})
		}
		result = append(result, models.SensorStatistic{
			SensorID:  g.sensorID,
			Timestamp: g.timestamp,
			Metrics:   metrics,
		})
	}

	return result
}
