package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Result represents benchmark results
type Result struct {
	Operation  string
	TotalOps   int64
	SuccessOps int64
	ErrorOps   int64
	Duration   time.Duration
	Throughput float64 // ops/sec
	AvgLatency float64 // ms
	MinLatency float64 // ms
	MaxLatency float64 // ms
	P50Latency float64 // ms
	P95Latency float64 // ms
	P99Latency float64 // ms
	ErrorMsg   string  // First error message
}

func calculateResult(operation string, s opSnapshot, duration time.Duration) Result {
	result := Result{
		Operation:  operation,
		TotalOps:   s.success + s.errors,
		SuccessOps: s.success,
		ErrorOps:   s.errors,
		Duration:   duration,
		ErrorMsg:   s.firstError,
	}
	if duration > 0 {
		result.Throughput = float64(s.success) / duration.Seconds()
	}
	if len(s.latencies) == 0 {
		return result
	}

	latencies := append([]float64(nil), s.latencies...)
	sort.Float64s(latencies)

	result.MinLatency = latencies[0]
	result.MaxLatency = latencies[len(latencies)-1]
	result.P50Latency = percentile(latencies, 50)
	result.P95Latency = percentile(latencies, 95)
	result.P99Latency = percentile(latencies, 99)

	var sum float64
	for _, lat := range latencies {
		sum += lat
	}
	result.AvgLatency = sum / float64(len(latencies))

	return result
}

// percentile uses the nearest-rank method on sorted input
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(float64(len(sorted))*p/100.0)) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func writeResult(w io.Writer, r Result) {
	_, _ = fmt.Fprintf(w, "=== %s Operations ===\n", r.Operation)
	_, _ = fmt.Fprintf(w, "Total Operations: %d\n", r.TotalOps)
	_, _ = fmt.Fprintf(w, "Success:          %d (%.2f%%)\n", r.SuccessOps, ratio(r.SuccessOps, r.TotalOps))
	_, _ = fmt.Fprintf(w, "Errors:           %d (%.2f%%)\n", r.ErrorOps, ratio(r.ErrorOps, r.TotalOps))
	_, _ = fmt.Fprintf(w, "Duration:         %s\n", r.Duration)
	_, _ = fmt.Fprintf(w, "Throughput:       %.2f ops/sec\n", r.Throughput)
	if r.ErrorOps > 0 && r.ErrorMsg != "" {
		_, _ = fmt.Fprintf(w, "First Error:      %s\n", r.ErrorMsg)
	}
	_, _ = fmt.Fprintf(w, "\nLatency (ms):\n")
	_, _ = fmt.Fprintf(w, "  Min:  %.2f\n", r.MinLatency)
	_, _ = fmt.Fprintf(w, "  Avg:  %.2f\n", r.AvgLatency)
	_, _ = fmt.Fprintf(w, "  P50:  %.2f\n", r.P50Latency)
	_, _ = fmt.Fprintf(w, "  P95:  %.2f\n", r.P95Latency)
	_, _ = fmt.Fprintf(w, "  P99:  %.2f\n", r.P99Latency)
	_, _ = fmt.Fprintf(w, "  Max:  %.2f\n", r.MaxLatency)
}

func saveResults(config BenchmarkConfig, results ...Result) error {
	if err := os.MkdirAll(config.ResultsDir, 0o755); err != nil {
		return err
	}

	filename := filepath.Join(config.ResultsDir,
		fmt.Sprintf("weather_benchmark_%s.txt", time.Now().Format("20060102_150405")))
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "=== Weather Metrics Benchmark Results ===\n")
	_, _ = fmt.Fprintf(f, "Date: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(f, "Configuration:\n")
	_, _ = fmt.Fprintf(f, "  URL: %s\n", config.BaseURL)
	_, _ = fmt.Fprintf(f, "  Sensors: %d\n", config.NumSensors)
	_, _ = fmt.Fprintf(f, "  Duration: %s\n", config.Duration)
	_, _ = fmt.Fprintf(f, "  Ingest Workers: %d\n", config.IngestWorkers)
	_, _ = fmt.Fprintf(f, "  Query Workers: %d\n\n", config.QueryWorkers)

	for i, r := range results {
		if i > 0 {
			_, _ = fmt.Fprintf(f, "\n")
		}
		writeResult(f, r)
	}

	fmt.Printf("\nResults saved to: %s\n", filename)
	return nil
}
