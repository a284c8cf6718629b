package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/questbench/application/runloop"
	"github.com/felixgeelhaar/questbench/domain/agentcfg"
	"github.com/felixgeelhaar/questbench/domain/run"
	"github.com/felixgeelhaar/questbench/infrastructure/logging"
)

// runOptions holds options for the run command.
type runOptions struct {
	questPath   string
	agentPath   string
	timeout     time.Duration
	maxSteps    int
	debug       bool
	dbPath      string
	resultsDir  string
	interpreter string
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one quest playthrough with one agent configuration",
		Long: `Run drives a single Run Loop: one quest interpreter subprocess,
one agent configuration, to a terminal outcome or timeout.

Exit codes: 0 SUCCESS, 1 FAILURE, 2 TIMEOUT, 3 ERROR.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuest(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.questPath, "quest", "", "Path to the .qm quest file (required)")
	cmd.Flags().StringVar(&opts.agentPath, "agent", "", "Agent configuration YAML file, or the built-in id \"random\" (required)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Run wall-clock timeout (overrides config default)")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Maximum step count (overrides config default)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.dbPath, "db", defaultDBPath(), "Path to the metrics.db SQLite database")
	cmd.Flags().StringVar(&opts.resultsDir, "results", "results", "Directory run-summary artifacts are written under")
	cmd.Flags().StringVar(&opts.interpreter, "interpreter", "", "Quest interpreter command line (required, e.g. \"queststar-cli\")")

	_ = cmd.MarkFlagRequired("quest")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("interpreter")

	return cmd
}

func (a *App) runQuest(ctx context.Context, opts *runOptions) error {
	logging.Init(logging.DefaultConfig())
	if opts.debug {
		logging.SetLevel("debug")
	}

	agentCfg, err := loadAgentConfig(opts.agentPath)
	if err != nil {
		return &ExitError{Code: 3, Err: err}
	}

	rt, err := newRuntime(ctx, opts.dbPath, parseInterpreterCmd(opts.interpreter))
	if err != nil {
		return &ExitError{Code: 3, Err: err}
	}
	defer rt.Close()

	rec, err := runloop.Run(ctx, runloop.Options{
		QuestPath:   opts.questPath,
		AgentConfig: agentCfg,
		MaxSteps:    opts.maxSteps,
		RunTimeout:  opts.timeout,
		ResultsDir:  opts.resultsDir,
	}, runloop.Deps{
		NewBridge:  rt.newBridge,
		RunStore:   rt.RunStore,
		EventStore: rt.EventStore,
		Completer:  rt.Client,
	})
	if err != nil {
		return &ExitError{Code: 3, Err: fmt.Errorf("run failed: %w", err)}
	}

	outcome := run.Error
	if rec.Outcome != nil {
		outcome = *rec.Outcome
	}
	fmt.Fprintf(a.stdout, "run %s: %s\n", rec.RunID, outcome)

	switch outcome {
	case run.Success:
		return nil
	case run.Failure:
		return &ExitError{Code: 1}
	case run.Timeout:
		return &ExitError{Code: 2}
	default:
		return &ExitError{Code: 3}
	}
}

// defaultTemplates back the built-in agent ids, so a quick baseline run
// needs no config file at all.
const (
	defaultSystemTemplate = `You are playing a text quest. Read the scene, weigh the options, and reply with strict JSON: {"reasoning": "<why>", "result": <choice number>}. {{.LoopHint}}`
	defaultActionTemplate = `{{.Observation}}

{{range $i, $c := .Choices}}{{$i}}. {{$c}}
{{end}}{{if .MemoryBlock}}Previously:
{{.MemoryBlock}}
{{end}}Reply with JSON only.`
)

// loadAgentConfig accepts either a YAML config file path or a built-in
// agent id. "random" (the seeded random_local baseline) is the only
// built-in; anything else must be a readable file.
func loadAgentConfig(path string) (agentcfg.Config, error) {
	if path == "random" {
		return agentcfg.Config{
			AgentID:        "random",
			Model:          "random_local:baseline",
			SystemTemplate: defaultSystemTemplate,
			ActionTemplate: defaultActionTemplate,
		}.Normalized(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return agentcfg.Config{}, fmt.Errorf("read agent config %s: %w", path, err)
	}
	var cfg agentcfg.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return agentcfg.Config{}, fmt.Errorf("parse agent config %s: %w", path, err)
	}
	if cfg.AgentID == "" {
		return agentcfg.Config{}, fmt.Errorf("agent config %s: agent_id is required", path)
	}
	return cfg.Normalized(), nil
}
