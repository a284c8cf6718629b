package providers

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

// DeepSeekConfig configures the DeepSeek chat completions adapter.
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string // defaults to https://api.deepseek.com
}

// DeepSeekProvider implements llm.Provider for DeepSeek's OpenAI-compatible
// chat completions API.
type DeepSeekProvider struct {
	cfg DeepSeekConfig
}

// NewDeepSeekProvider creates a DeepSeek adapter.
func NewDeepSeekProvider(cfg DeepSeekConfig) *DeepSeekProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	return &DeepSeekProvider{cfg: cfg}
}

func (p *DeepSeekProvider) Name() string { return "deepseek" }

// Complete issues a chat completion request against /chat/completions,
// using the same wire shape as OpenAI (DeepSeek's documented contract).
func (p *DeepSeekProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := requireAPIKey(p.cfg.APIKey); err != nil {
		return llm.Response{}, err
	}

	msgs := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openAIMessage{Role: m.Role, Content: m.Content}
	}

	body, status, err := postJSON(ctx, p.cfg.BaseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.cfg.APIKey},
		openAIRequest{Model: req.Model, Messages: msgs, Temperature: req.Temperature, MaxTokens: req.MaxTokens})
	if err != nil {
		return llm.Response{}, err
	}
	if cerr := classifyStatus(status, body); cerr != nil {
		return llm.Response{}, cerr
	}

	var parsed openAIResponse
	if jerr := unmarshalStrict(body, &parsed); jerr != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("decode deepseek response: %w", jerr)}
	}
	if parsed.Error != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("deepseek error: %s", parsed.Error.Message)}
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
