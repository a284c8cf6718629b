package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/questbench/domain/benchmark"
)

// writeBenchmarkSummary materializes
// results/benchmarks/<benchmark_id>/benchmark_summary.json.
func writeBenchmarkSummary(resultsDir string, summary benchmark.Summary) error {
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal benchmark summary: %w", err)
	}
	dir := filepath.Join(resultsDir, "benchmarks", summary.BenchmarkID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create benchmark summary dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "benchmark_summary.json"), raw, 0o644)
}
