package providers

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

// OpenRouterConfig configures the OpenRouter chat completions adapter.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string // defaults to https://openrouter.ai/api/v1
	// Referer and Title are optional attribution headers OpenRouter uses
	// for its public leaderboard; neither is required for the API to work.
	Referer string
	Title   string
}

// OpenRouterProvider implements llm.Provider for OpenRouter's
// OpenAI-compatible chat completions API, which fans out to many
// upstream model providers behind one endpoint.
type OpenRouterProvider struct {
	cfg OpenRouterConfig
}

// NewOpenRouterProvider creates an OpenRouter adapter.
func NewOpenRouterProvider(cfg OpenRouterConfig) *OpenRouterProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterProvider{cfg: cfg}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

// Complete issues a chat completion request against /chat/completions.
func (p *OpenRouterProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := requireAPIKey(p.cfg.APIKey); err != nil {
		return llm.Response{}, err
	}

	msgs := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openAIMessage{Role: m.Role, Content: m.Content}
	}

	headers := map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
	if p.cfg.Referer != "" {
		headers["HTTP-Referer"] = p.cfg.Referer
	}
	if p.cfg.Title != "" {
		headers["X-Title"] = p.cfg.Title
	}

	body, status, err := postJSON(ctx, p.cfg.BaseURL+"/chat/completions", headers,
		openAIRequest{Model: req.Model, Messages: msgs, Temperature: req.Temperature, MaxTokens: req.MaxTokens})
	if err != nil {
		return llm.Response{}, err
	}
	if cerr := classifyStatus(status, body); cerr != nil {
		return llm.Response{}, cerr
	}

	var parsed openAIResponse
	if jerr := unmarshalStrict(body, &parsed); jerr != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("decode openrouter response: %w", jerr)}
	}
	if parsed.Error != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("openrouter error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return llm.Response{FinishReason: "empty"}, nil
	}

	c := parsed.Choices[0]
	usage := llm.Usage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}
	if c.Message.Content == "" {
		return llm.Response{FinishReason: "empty", Usage: usage}, nil
	}
	return llm.Response{
		Content:      c.Message.Content,
		FinishReason: orEmpty(c.FinishReason),
		Usage:        usage,
	}, nil
}
