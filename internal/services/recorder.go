package services

import (
	"time"

	"github.com/soltixdb/weathermetrics/internal/models"
)

// Recorder receives service-level measurements
type Recorder interface {
	ReadingRecorded(reading models.Reading)
	EventPublished(err error)
	StatisticsComputed(stat models.Statistic, sensors int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ReadingRecorded(models.Reading)                          {}
func (nopRecorder) EventPublished(error)                                    {}
func (nopRecorder) StatisticsComputed(models.Statistic, int, time.Duration) {}
