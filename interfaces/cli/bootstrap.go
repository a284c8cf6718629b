package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/questbench/domain/env"
	"github.com/felixgeelhaar/questbench/infrastructure/bridge"
	"github.com/felixgeelhaar/questbench/infrastructure/config"
	"github.com/felixgeelhaar/questbench/infrastructure/llmclient"
	"github.com/felixgeelhaar/questbench/infrastructure/llmclient/providers"
	"github.com/felixgeelhaar/questbench/infrastructure/storage/sqlite"
)

// runtime bundles the shared, process-wide collaborators every CLI
// subcommand needs: the LLM client with every provider in the closed set
// registered, the SQLite-backed stores, and a bridge factory bound to
// the configured interpreter command. Everything here is read-only or
// safe for concurrent use.
type runtime struct {
	db         *sql.DB
	RunStore   *sqlite.RunStore
	EventStore *sqlite.EventStore
	BenchStore *sqlite.BenchmarkStore
	Client     *llmclient.Client

	interpreterCmd []string
}

func newRuntime(ctx context.Context, dbPath string, interpreterCmd []string) (*runtime, error) {
	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}

	prices, err := config.LoadPrices()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load prices: %w", err)
	}

	client := llmclient.New(llmclient.DefaultConfig(), prices)
	client.Register(providers.NewOpenAIProvider(providers.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")}))
	client.Register(providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")}))
	client.Register(providers.NewGoogleProvider(providers.GoogleConfig{APIKey: os.Getenv("GOOGLE_API_KEY")}))
	client.Register(providers.NewDeepSeekProvider(providers.DeepSeekConfig{APIKey: os.Getenv("DEEPSEEK_API_KEY")}))
	client.Register(providers.NewOpenRouterProvider(providers.OpenRouterConfig{APIKey: os.Getenv("OPENROUTER_API_KEY")}))
	client.Register(providers.NewRandomLocalProvider(0)) // per-run seeded instances bypass this shared one

	return &runtime{
		db:             db,
		RunStore:       sqlite.NewRunStore(db),
		EventStore:     sqlite.NewEventStore(db),
		BenchStore:     sqlite.NewBenchmarkStore(db),
		Client:         client,
		interpreterCmd: interpreterCmd,
	}, nil
}

func (r *runtime) Close() error {
	return r.db.Close()
}

func (r *runtime) newBridge() env.Bridge {
	return bridge.New(r.interpreterCmd)
}

// parseInterpreterCmd splits the --interpreter flag on whitespace into the
// argv the Engine Bridge will exec; quotes are not interpreted.
func parseInterpreterCmd(s string) []string {
	return strings.Fields(s)
}

func defaultDBPath() string {
	return filepath.Join(".", "metrics.db")
}
