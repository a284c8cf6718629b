package providers

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

// AnthropicConfig configures the Anthropic messages API adapter.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string // defaults to https://api.anthropic.com/v1
	APIVersion string // defaults to 2023-06-01
}

// AnthropicProvider implements llm.Provider for Anthropic's messages API.
type AnthropicProvider struct {
	cfg AnthropicConfig
}

// NewAnthropicProvider creates an Anthropic adapter.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-06-01"
	}
	return &AnthropicProvider{cfg: cfg}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
	Error      *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete issues a request against /messages. Anthropic takes the
// system prompt out-of-band from the message list, so a leading "system"
// role message is lifted into the top-level System field.
func (p *AnthropicProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := requireAPIKey(p.cfg.APIKey); err != nil {
		return llm.Response{}, err
	}

	var system string
	msgs := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	body, status, err := postJSON(ctx, p.cfg.BaseURL+"/messages",
		map[string]string{"x-api-key": p.cfg.APIKey, "anthropic-version": p.cfg.APIVersion},
		anthropicRequest{Model: req.Model, System: system, Messages: msgs, Temperature: req.Temperature, MaxTokens: maxTokens})
	if err != nil {
		return llm.Response{}, err
	}
	if cerr := classifyStatus(status, body); cerr != nil {
		return llm.Response{}, cerr
	}

	var parsed anthropicResponse
	if jerr := unmarshalStrict(body, &parsed); jerr != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("decode anthropic response: %w", jerr)}
	}
	if parsed.Error != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("anthropic error: %s", parsed.Error.Message)}
	}

	var content string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return llm.Response{FinishReason: "empty"}, nil
	}

	return llm.Response{
		Content:      content,
		FinishReason: orEmpty(parsed.StopReason),
		Usage: llm.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}
