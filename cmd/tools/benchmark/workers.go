package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// opStats accumulates latencies and outcomes of one operation kind
type opStats struct {
	mu         sync.Mutex
	latencies  []float64
	firstError string
	success    int64
	errors     int64
}

func (s *opStats) observe(latency time.Duration, err error) {
	s.mu.Lock()
	s.latencies = append(s.latencies, float64(latency.Microseconds())/1000)
	if err != nil && s.firstError == "" {
		s.firstError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		atomic.AddInt64(&s.errors, 1)
	} else {
		atomic.AddInt64(&s.success, 1)
	}
}

type opSnapshot struct {
	latencies  []float64
	firstError string
	success    int64
	errors     int64
}

func (s *opStats) snapshot() opSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return opSnapshot{
		latencies:  append([]float64(nil), s.latencies...),
		firstError: s.firstError,
		success:    atomic.LoadInt64(&s.success),
		errors:     atomic.LoadInt64(&s.errors),
	}
}

type benchStats struct {
	ingest opStats
	query  opStats
}

func runBenchmark(config BenchmarkConfig) *benchStats {
	stats := &benchStats{}

	var wg sync.WaitGroup
	stopCh := make(chan struct{})
	startTime := time.Now()

	for i := 0; i < config.IngestWorkers; i++ {
		wg.Add(1)
		go ingestWorker(i, config, stats, stopCh, &wg)
	}

	for i := 0; i < config.QueryWorkers; i++ {
		wg.Add(1)
		go queryWorker(i, config, stats, stopCh, &wg)
	}

	go progressReporter(stats, config.Duration, startTime, stopCh)

	time.Sleep(config.Duration)
	close(stopCh)
	wg.Wait()

	return stats
}

func ingestWorker(id int, config BenchmarkConfig, stats *benchStats, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	baseTime := time.Now().Add(-config.DataTimeRange)
	sensor := id % config.NumSensors
	counter := 0

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		ts := baseTime.Add(time.Duration(counter) * time.Second)
		payload := newReadingPayload(sensorName(config.sensorPrefix, sensor), ts, rng)
		counter++
		sensor = (sensor + 1) % config.NumSensors

		start := time.Now()
		err := makeRequest(config.HTTPClient, http.MethodPost, config.BaseURL+"/api/v1/weather/metric", payload)
		stats.ingest.observe(time.Since(start), err)
	}
}

func queryWorker(id int, config BenchmarkConfig, stats *benchStats, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() - int64(id)))
	ticker := time.NewTicker(config.QueryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			target := statisticsURL(config, rng, time.Now())

			start := time.Now()
			err := makeRequest(config.HTTPClient, http.MethodGet, target, nil)
			stats.query.observe(time.Since(start), err)
		}
	}
}

func progressReporter(stats *benchStats, duration time.Duration, startTime time.Time, stopCh chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		elapsed := time.Since(startTime)
		ingests := atomic.LoadInt64(&stats.ingest.success)
		queries := atomic.LoadInt64(&stats.query.success)

		fmt.Printf("[%s remaining] Ingest: %d (%.0f/s, %d errors) | Statistics: %d (%.0f/s, %d errors)\n",
			(duration - elapsed).Round(time.Second),
			ingests, float64(ingests)/elapsed.Seconds(), atomic.LoadInt64(&stats.ingest.errors),
			queries, float64(queries)/elapsed.Seconds(), atomic.LoadInt64(&stats.query.errors))
	}
}

// readingPayload mirrors the ingest body
type readingPayload struct {
	SensorID  string          `json:"sensorId"`
	Timestamp string          `json:"timestamp"`
	Metrics   []metricPayload `json:"metrics"`
}

type metricPayload struct {
	MetricName  string  `json:"metricName"`
	MetricValue float64 `json:"metricValue"`
	Unit        string  `json:"unit,omitempty"`
}

func sensorName(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

func newReadingPayload(sensorID string, ts time.Time, rng *rand.Rand) readingPayload {
	return readingPayload{
		SensorID:  sensorID,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Metrics: []metricPayload{
			{MetricName: "Temp", MetricValue: round1(-10 + rng.Float64()*45), Unit: "C"},
			{MetricName: "Humidity", MetricValue: round1(rng.Float64() * 100), Unit: "%"},
			{MetricName: "WindSpeed", MetricValue: round1(rng.Float64() * 120), Unit: "km/h"},
		},
	}
}

func round1(v float64) float64 {
	return float64(int64(v*10)) / 10
}

// statisticsURL builds a random statistics query ending at now
func statisticsURL(config BenchmarkConfig, rng *rand.Rand, now time.Time) string {
	q := url.Values{}
	q.Set("statistic", config.Statistics[rng.Intn(len(config.Statistics))])
	q.Set("startDate", now.Add(-config.QueryWindow).UTC().Format(time.RFC3339))
	q.Set("endDate", now.UTC().Format(time.RFC3339))

	// Half of the queries target a single sensor
	if rng.Intn(2) == 0 {
		q.Set("sensorId", sensorName(config.sensorPrefix, rng.Intn(config.NumSensors)))
	}
	return config.BaseURL + "/api/v1/weather/metric/statistic?" + q.Encode()
}

func makeRequest(client *http.Client, method, target string, data interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Read and discard body to reuse connection
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
