package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/samber/lo"

	"github.com/feedrig/feedrig/internal/metrics"
	"github.com/feedrig/feedrig/internal/threshold"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Feed Run Results ---")
	if stats.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", stats.RunID)
	}
	fmt.Fprintf(w, "Total Reads:       %d\n", stats.TotalReads)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Reads/sec:         %.2f\n", stats.ReadsPerSec)
	fmt.Fprintln(w, "\nRead Latency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.ReadsByFeed) > 0 {
		fmt.Fprintln(w, "\nFeed Breakdown:")
		for _, name := range sortedByCount(stats.ReadsByFeed) {
			share := 0.0
			if stats.TotalReads > 0 {
				share = (float64(stats.ReadsByFeed[name]) / float64(stats.TotalReads)) * 100
			}
			line := fmt.Sprintf("  - %s: reads=%d (%.1f%%)", name, stats.ReadsByFeed[name], share)
			if ms, ok := stats.InitMsByFeed[name]; ok {
				line += fmt.Sprintf(", init=%.1fms", ms)
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(stats.ReadsByScenario) > 0 {
		fmt.Fprintln(w, "\nScenario Breakdown:")
		for _, name := range sortedByCount(stats.ReadsByScenario) {
			fmt.Fprintf(w, "  - %s: reads=%d\n", name, stats.ReadsByScenario[name])
		}
	}
}

// PrintThresholds outputs threshold evaluation results.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// WriteReportFile writes the JSON report to path, holding an advisory
// file lock so concurrent runs pointed at the same report file do not
// interleave their writes.
func WriteReportFile(path string, stats metrics.Stats) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock report file %s: %w", path, err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer f.Close()

	if err := PrintJSONReport(f, stats); err != nil {
		return fmt.Errorf("failed to write report file %s: %w", path, err)
	}
	return nil
}

// sortedByCount returns map keys ordered by descending count, ties by name.
func sortedByCount(counts map[string]int64) []string {
	names := lo.Keys(counts)
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
