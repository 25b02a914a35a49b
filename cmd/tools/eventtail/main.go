// Command eventtail follows the reading events published by the weather
// service and logs one line per recorded reading.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/queue"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	subject := flag.String("subject", "", "Subject to follow (default: queue.subject from config)")
	sensors := flag.String("sensors", "", "Only log events of these sensor ids, comma separated")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	qt := utils.QueueType(strings.ToLower(cfg.Queue.Type))
	if qt == "" || qt == utils.QueueTypeNone {
		fmt.Fprintln(os.Stderr, "queue.type is none, there are no events to follow")
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if *subject == "" {
		*subject = cfg.Queue.Subject
	}

	sub, err := queue.NewSubscriber(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to create subscriber", "type", cfg.Queue.Type, "error", err)
	}
	defer func() { _ = sub.Close() }()

	tail := newTailer(logger, splitSensors(*sensors))
	if err := sub.Subscribe(*subject, tail.handle); err != nil {
		logger.Fatal("Failed to subscribe", "subject", *subject, "error", err)
	}
	logger.Info("Following reading events", "type", cfg.Queue.Type, "subject", *subject)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Stopped", "events", tail.seen.Load(), "skipped", tail.skipped.Load())
}

type tailer struct {
	logger  *logging.Logger
	sensors map[string]struct{}
	seen    atomic.Int64
	skipped atomic.Int64
}

func newTailer(logger *logging.Logger, sensors []string) *tailer {
	t := &tailer{logger: logger}
	if len(sensors) > 0 {
		t.sensors = make(map[string]struct{}, len(sensors))
		for _, s := range sensors {
			t.sensors[s] = struct{}{}
		}
	}
	return t
}

// handle logs one event. Undecodable payloads are logged and acknowledged;
// redelivery would not fix them.
func (t *tailer) handle(msg queue.Message) error {
	event, err := queue.DecodeReadingEvent(msg)
	if err != nil {
		t.skipped.Add(1)
		t.logger.Warn("Skipping undecodable event",
			"subject", msg.Subject,
			"reading_id", msg.Headers[queue.HeaderReadingID],
			"error", err)
		return nil
	}

	if t.sensors != nil {
		if _, ok := t.sensors[event.SensorID]; !ok {
			return nil
		}
	}

	t.seen.Add(1)
	t.logger.Info("Reading recorded",
		"reading_id", event.ID,
		"sensor_id", event.SensorID,
		"timestamp", event.Timestamp,
		"recorded_at", event.RecordedAt,
		"metrics", formatMetrics(event.Metrics))
	return nil
}

func formatMetrics(metrics []models.Metric) string {
	parts := make([]string, 0, len(metrics))
	for _, m := range metrics {
		part := fmt.Sprintf("%s=%g", m.MetricName, m.MetricValue)
		if m.Unit != "" {
			part += m.Unit
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

func splitSensors(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
