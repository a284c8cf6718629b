// Package llmclient implements the LLM Client Layer: a
// uniform complete() call across the closed provider set, with
// exponential backoff retry, a per-provider circuit breaker, and a
// per-provider bulkhead bounding concurrent in-flight calls. The
// resilience layers compose as bulkhead, then circuit breaker, then
// retry, with the caller's timeout bounding the whole call.
package llmclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/questbench/domain/llm"
	"github.com/felixgeelhaar/questbench/infrastructure/logging"
)

// Config controls the resilience stack wrapping every provider.
type Config struct {
	MaxAttempts              int
	InitialDelay             time.Duration
	BackoffMultiplier        float64
	MaxConcurrentPerProvider int
	CircuitBreakerThreshold  int
	CircuitBreakerTimeout    time.Duration
}

// DefaultConfig returns max 3 attempts with jittered exponential
// backoff.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:              3,
		InitialDelay:             200 * time.Millisecond,
		BackoffMultiplier:        2.0,
		MaxConcurrentPerProvider: 8,
		CircuitBreakerThreshold:  5,
		CircuitBreakerTimeout:    30 * time.Second,
	}
}

type providerStack struct {
	provider llm.Provider
	bulkhead bulkhead.Bulkhead[llm.Response]
	breaker  circuitbreaker.CircuitBreaker[llm.Response]
	retry    retry.Retry[llm.Response]
}

// Client dispatches completion requests to the provider named in a
// "provider:model" identifier, priced against a read-only PriceTable.
// Short model names resolve through the published alias table first.
type Client struct {
	cfg     Config
	prices  llm.PriceTable
	aliases llm.AliasTable

	mu     sync.RWMutex
	stacks map[string]*providerStack
}

// New creates a Client with the default alias table. Providers are
// registered with Register before use; the closed set and its
// construction live in infrastructure/llmclient/providers.
func New(cfg Config, prices llm.PriceTable) *Client {
	return &Client{cfg: cfg, prices: prices, aliases: llm.DefaultAliases(), stacks: make(map[string]*providerStack)}
}

// WithAliases replaces the alias table, for deployments that publish
// their own short names. Call before the first Complete.
func (c *Client) WithAliases(aliases llm.AliasTable) *Client {
	c.aliases = aliases
	return c
}

// Register wires a provider adapter into the resilience stack under its
// Name().
func (c *Client) Register(p llm.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stacks[p.Name()] = &providerStack{
		provider: p,
		bulkhead: bulkhead.New[llm.Response](bulkhead.Config{MaxConcurrent: c.cfg.MaxConcurrentPerProvider}),
		breaker: circuitbreaker.New[llm.Response](circuitbreaker.Config{
			MaxRequests: uint32(c.cfg.MaxConcurrentPerProvider),
			Interval:    c.cfg.CircuitBreakerTimeout,
			Timeout:     c.cfg.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(c.cfg.CircuitBreakerThreshold)
			},
		}),
		retry: retry.New[llm.Response](retry.Config{
			MaxAttempts:   c.cfg.MaxAttempts,
			InitialDelay:  c.cfg.InitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    c.cfg.BackoffMultiplier,
		}),
	}
}

// splitModelID parses "provider:model" into its two parts.
func splitModelID(modelID string) (provider, model string, ok bool) {
	i := strings.IndexByte(modelID, ':')
	if i <= 0 || i == len(modelID)-1 {
		return "", "", false
	}
	return modelID[:i], modelID[i+1:], true
}

// Complete resolves the provider from the model identifier (an alias or
// a full "provider:model"), executes it through that provider's
// bulkhead → circuit breaker → retry stack, and attaches cost_usd from
// the price table. The total wall-clock budget is bounded by the ctx
// deadline the caller supplies.
func (c *Client) Complete(ctx context.Context, modelID string, req llm.Request) (llm.Response, error) {
	modelID = c.aliases.Resolve(modelID)
	providerName, model, ok := splitModelID(modelID)
	if !ok {
		return llm.Response{}, llm.ErrUnknownProvider
	}

	c.mu.RLock()
	stack, found := c.stacks[providerName]
	c.mu.RUnlock()
	if !found {
		return llm.Response{}, llm.ErrUnknownProvider
	}

	req.Model = model

	var permErr error
	resp, err := stack.bulkhead.Execute(ctx, func(ctx context.Context) (llm.Response, error) {
		return stack.breaker.Execute(ctx, func(ctx context.Context) (llm.Response, error) {
			return stack.retry.Do(ctx, func(ctx context.Context) (llm.Response, error) {
				r, cerr := stack.provider.Complete(ctx, req)
				if cerr == nil {
					return r, nil
				}

				var perm *llm.PermanentError
				if errors.As(cerr, &perm) {
					// Non-retryable: stop the retry loop by reporting
					// success to fortify, then surface the real error
					// to the caller once Do returns.
					permErr = cerr
					logging.Warn().Add(logging.Provider(providerName)).Add(logging.ErrorField(cerr)).Msg("llm permanent error, not retrying")
					return llm.Response{}, nil
				}

				logging.Debug().Add(logging.Provider(providerName)).Add(logging.ErrorField(cerr)).Msg("llm transient error, retrying")
				return llm.Response{}, cerr
			})
		})
	})
	if permErr != nil {
		return llm.Response{}, permErr
	}
	if err != nil {
		return llm.Response{}, err
	}

	price := c.prices.Lookup(modelID)
	resp.CostUSD = price.Cost(resp.Usage)
	return resp, nil
}
