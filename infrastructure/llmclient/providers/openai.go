package providers

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

// OpenAIConfig configures the OpenAI chat completions adapter.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // defaults to https://api.openai.com/v1
}

// OpenAIProvider implements llm.Provider for OpenAI's chat completions API.
type OpenAIProvider struct {
	cfg OpenAIConfig
}

// NewOpenAIProvider creates an OpenAI adapter.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{cfg: cfg}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete issues a chat completion request against /chat/completions.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
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
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("decode openai response: %w", jerr)}
	}
	if parsed.Error != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("openai error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return llm.Response{FinishReason: "empty"}, nil
	}

	c := parsed.Choices[0]
	if c.Message.Content == "" {
		return llm.Response{FinishReason: "empty", Usage: llm.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}}, nil
	}
	return llm.Response{
		Content:      c.Message.Content,
		FinishReason: orEmpty(c.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

func orEmpty(s string) string {
	if s == "" {
		return "empty"
	}
	return s
}
