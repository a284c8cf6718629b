// Package llm defines the provider-agnostic chat-completion facade: a
// closed set of provider adapters behind one Complete call, with
// token/cost accounting.
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request is a uniform completion request across providers.
type Request struct {
	Model       string // model identifier without the provider prefix
	Messages    []Message
	Temperature float64
	MaxTokens   int

	// NumChoices is the number of valid 1-based indices the reply's
	// "result" field may take. Network-backed adapters ignore it (the
	// bound is carried in the rendered prompt instead); random_local
	// uses it directly since it never reads the prompt text.
	NumChoices int
}

// Usage is per-call token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a uniform completion result. FinishReason is "empty" when
// the provider returned absent/null content rather than the adapter raising.
type Response struct {
	Content      string
	Usage        Usage
	CostUSD      float64
	FinishReason string
}

// Provider is the capability every adapter in the closed set implements:
// {openai, anthropic, google, deepseek, openrouter, random_local}.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}
