package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// BenchmarkConfig holds benchmark configuration
type BenchmarkConfig struct {
	BaseURL       string
	NumSensors    int
	Duration      time.Duration
	IngestWorkers int
	QueryWorkers  int
	QueryInterval time.Duration
	QueryWindow   time.Duration // Width of the statistics window per query
	DataTimeRange time.Duration // How far back in time readings are spread
	Statistics    []string
	ResultsDir    string
	HTTPClient    *http.Client // Shared HTTP client for connection pooling
	sensorPrefix  string
}

func main() {
	config := BenchmarkConfig{sensorPrefix: "sensor"}
	var statistics string
	flag.StringVar(&config.BaseURL, "url", "http://127.0.0.1:8080", "Base URL of the API")
	flag.IntVar(&config.NumSensors, "sensors", 50, "Number of simulated sensors")
	flag.DurationVar(&config.Duration, "duration", 60*time.Second, "Benchmark duration")
	flag.IntVar(&config.IngestWorkers, "ingest-workers", 10, "Number of concurrent ingest workers")
	flag.IntVar(&config.QueryWorkers, "query-workers", 5, "Number of concurrent statistics workers")
	flag.DurationVar(&config.QueryInterval, "query-interval", 10*time.Millisecond, "Interval between queries per worker")
	flag.DurationVar(&config.QueryWindow, "query-window", 24*time.Hour, "Statistics window per query")
	flag.DurationVar(&config.DataTimeRange, "time-range", 7*24*time.Hour, "Time range to spread readings across")
	flag.StringVar(&statistics, "statistics", "min,max,avg,sum", "Statistics to query, comma separated")
	flag.StringVar(&config.ResultsDir, "results-dir", "benchmark_results", "Directory for the result file, empty disables it")
	flag.Parse()

	config.Statistics = strings.Split(statistics, ",")
	if config.NumSensors < 1 {
		fmt.Fprintln(os.Stderr, "-sensors must be at least 1")
		os.Exit(1)
	}

	config.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== Weather Metrics Benchmark ===\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  URL: %s\n", config.BaseURL)
	fmt.Printf("  Sensors: %d\n", config.NumSensors)
	fmt.Printf("  Duration: %s\n", config.Duration)
	fmt.Printf("  Ingest Workers: %d\n", config.IngestWorkers)
	fmt.Printf("  Query Workers: %d\n", config.QueryWorkers)
	fmt.Printf("  Query Interval: %s\n", config.QueryInterval)
	fmt.Printf("  Statistics: %s\n", strings.Join(config.Statistics, ", "))
	fmt.Printf("\n")

	stats := runBenchmark(config)

	ingestResult := calculateResult("Ingest", stats.ingest.snapshot(), config.Duration)
	queryResult := calculateResult("Statistics", stats.query.snapshot(), config.Duration)

	fmt.Printf("\n=== Benchmark Results ===\n\n")
	writeResult(os.Stdout, ingestResult)
	fmt.Println()
	writeResult(os.Stdout, queryResult)

	if config.ResultsDir != "" {
		if err := saveResults(config, ingestResult, queryResult); err != nil {
			fmt.Printf("Failed to save results: %v\n", err)
		}
	}
}
