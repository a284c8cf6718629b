package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questbench/application/scheduler"
	"github.com/felixgeelhaar/questbench/infrastructure/config"
	"github.com/felixgeelhaar/questbench/infrastructure/logging"
)

type benchmarkOptions struct {
	configPath  string
	dbPath      string
	resultsDir  string
	interpreter string
	debug       bool
}

func (a *App) newBenchmarkCmd() *cobra.Command {
	opts := &benchmarkOptions{}

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run a quest x agent matrix across a bounded worker pool",
		Long: `Benchmark expands the cartesian product of quests and agent
configurations named in --config and dispatches each pair as an
independent Run Loop, bounded by max_workers.

Exit code 0 iff the config parsed and the scheduler completed; per-run
outcomes live in the benchmark and run summary artifacts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBenchmark(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to the benchmark matrix YAML (required)")
	cmd.Flags().StringVar(&opts.dbPath, "db", defaultDBPath(), "Path to the metrics.db SQLite database")
	cmd.Flags().StringVar(&opts.resultsDir, "results", "results", "Directory result artifacts are written under")
	cmd.Flags().StringVar(&opts.interpreter, "interpreter", "", "Quest interpreter command line (required, e.g. \"queststar-cli\")")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("interpreter")

	return cmd
}

func (a *App) runBenchmark(ctx context.Context, opts *benchmarkOptions) error {
	logging.Init(logging.DefaultConfig())
	if opts.debug {
		logging.SetLevel("debug")
	}

	matrix, err := config.LoadMatrix(opts.configPath)
	if err != nil {
		return &ExitError{Code: 3, Err: err}
	}

	rt, err := newRuntime(ctx, opts.dbPath, parseInterpreterCmd(opts.interpreter))
	if err != nil {
		return &ExitError{Code: 3, Err: err}
	}
	defer rt.Close()

	summary, err := scheduler.Run(ctx, matrix, scheduler.Deps{
		NewBridge:      rt.newBridge,
		RunStore:       rt.RunStore,
		EventStore:     rt.EventStore,
		BenchmarkStore: rt.BenchStore,
		Completer:      rt.Client,
		ResultsDir:     opts.resultsDir,
	})
	if err != nil {
		return &ExitError{Code: 3, Err: fmt.Errorf("benchmark failed: %w", err)}
	}

	fmt.Fprintf(a.stdout, "benchmark %s: %d runs\n", summary.BenchmarkID, summary.TotalRuns)
	for _, row := range summary.PerAgent {
		fmt.Fprintf(a.stdout, "  agent %-20s ok=%d fail=%d timeout=%d error=%d\n", row.Key, row.OK, row.Fail, row.Timeout, row.Error)
	}
	return nil
}
