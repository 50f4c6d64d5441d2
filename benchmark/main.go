// Package main provides a performance benchmarking tool for the leadscore CLI.
// It generates synthetic contact batches of several sizes, scores each batch
// against every framework with different worker counts, and compares runs that
// skip result tracking with runs that record results in SQLite. Each SQLite
// phase treats its first successful run as cold and averages the rest as warm.
// The timings are written to a CSV file for performance analysis.
//
// Prerequisites:
// - leadscore binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for generated contact files and SQLite databases
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult holds the timings of one batch size and worker count.
type BenchmarkResult struct {
	Contacts     int
	Workers      int
	UntrackedAvg string
	ColdTime     string
	WarmAvg      string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir        string
	Timeout        time.Duration
	UntrackedRuns  int
	TrackedRuns    int
	BatchSizes     []int
	WorkerCounts   []int
	Seed           uint64
	SyntheticTitle []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:       os.Args[1],
		Timeout:       5 * time.Minute,
		UntrackedRuns: 3,
		TrackedRuns:   4,
		BatchSizes:    []int{1_000, 10_000, 100_000},
		WorkerCounts:  []int{1, 4, 14},
		Seed:          42,
		SyntheticTitle: []string{
			"CEO", "Chief Revenue Officer", "VP of Sales", "Director of Operations",
			"Head of Growth", "Engineering Manager", "Account Executive", "Analyst", "",
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the leadscore binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("leadscore"); err != nil {
		return fmt.Errorf("leadscore binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("work dir %s is not usable: %w", config.WorkDir, err)
	}
	return nil
}

// runBenchmarks executes every batch size and worker count combination
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d batch sizes, %d worker counts, %v timeout, untracked: %d runs, tracked: %d runs\n",
		len(config.BatchSizes), len(config.WorkerCounts), config.Timeout, config.UntrackedRuns, config.TrackedRuns)

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed))
	for _, size := range config.BatchSizes {
		input := filepath.Join(config.WorkDir, fmt.Sprintf("contacts_%d.json", size))
		if err := writeContacts(input, size, config.SyntheticTitle, rng); err != nil {
			fmt.Printf("Skipping %d contacts: %v\n", size, err)
			continue
		}
		for _, workers := range config.WorkerCounts {
			results = append(results, runBenchmarkSuite(config, input, size, workers))
		}
	}

	return results
}

// writeContacts generates n contacts with a spread of enrichment quality
func writeContacts(path string, n int, titles []string, rng *rand.Rand) error {
	timelines := []string{"asap", "this quarter", "next year", "just browsing", ""}
	contacts := make([]map[string]any, n)
	for i := range contacts {
		enrichment := map[string]any{
			"title":    titles[rng.IntN(len(titles))],
			"timeline": timelines[rng.IntN(len(timelines))],
		}
		if rng.IntN(3) > 0 {
			enrichment["budget"] = rng.IntN(500_000)
		}
		if rng.IntN(2) == 0 {
			enrichment["pain_points"] = "manual reporting and slow onboarding"
		}
		if rng.IntN(2) == 0 {
			enrichment["last_engaged_at"] = time.Now().AddDate(0, 0, -rng.IntN(120)).Format(time.RFC3339)
		}
		contacts[i] = map[string]any{"id": "bench-" + strconv.Itoa(i), "enrichment": enrichment}
	}

	data, err := json.Marshal(contacts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// runBenchmarkSuite runs the untracked and tracked phases for one combination
func runBenchmarkSuite(config BenchmarkConfig, input string, size, workers int) BenchmarkResult {
	fmt.Printf("Scoring %d contacts with %d workers\n", size, workers)

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, input, workers, backend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	_, untrackedAvg := runPhase("none", config.UntrackedRuns, "Untracked")
	coldTime, warmAvg := runPhase("sqlite", config.TrackedRuns, "Tracked")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  Untracked average: %s, Cold time: %s, Warm average: %s\n", untrackedAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Contacts:     size,
		Workers:      workers,
		UntrackedAvg: untrackedAvg,
		ColdTime:     coldTimeStr,
		WarmAvg:      warmAvg,
	}
}

// runBenchmark scores input numRuns times and returns the cold time and warm times.
// Every tracked phase starts from a fresh results database.
func runBenchmark(config BenchmarkConfig, input string, workers int, backend string, numRuns int) (coldTime float64, warmTimes []float64) {
	configDB := filepath.Join(config.WorkDir, "bench_config.db")
	resultsDB := filepath.Join(config.WorkDir, fmt.Sprintf("bench_results_%d.db", workers))
	_ = os.Remove(resultsDB)

	args := []string{
		"score",
		"--input", input,
		"--framework", "all",
		"--output", "csv",
		"--output-file", os.DevNull,
		"--workers", strconv.Itoa(workers),
		"--config-db-connect", configDB,
		"--results-backend", backend,
	}
	if backend == "sqlite" {
		args = append(args, "--results-db-connect", resultsDB)
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "leadscore", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err != nil {
			fmt.Printf("    run failed: %v\n%s", err, string(output))
			continue
		}
		times = append(times, elapsed)
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/leadscore_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"contacts", "workers", "untracked_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{strconv.Itoa(result.Contacts), strconv.Itoa(result.Workers), result.UntrackedAvg, result.ColdTime, result.WarmAvg}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results grouped by batch size
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	lastSize := -1
	for _, result := range results {
		if result.Contacts != lastSize {
			fmt.Printf("%d contacts:\n", result.Contacts)
			lastSize = result.Contacts
		}
		fmt.Printf("  %2d workers: Untracked: %s, Cold: %s, Warm: %s\n", result.Workers, result.UntrackedAvg, result.ColdTime, result.WarmAvg)
	}

	fmt.Printf("Benchmark script completed successfully\n")
}
