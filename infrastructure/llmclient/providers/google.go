package providers

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

// GoogleConfig configures the Gemini generateContent adapter.
type GoogleConfig struct {
	APIKey  string
	BaseURL string // defaults to https://generativelanguage.googleapis.com/v1beta
}

// GoogleProvider implements llm.Provider for Google's Gemini API.
type GoogleProvider struct {
	cfg GoogleConfig
}

// NewGoogleProvider creates a Gemini adapter.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GoogleProvider{cfg: cfg}
}

func (p *GoogleProvider) Name() string { return "google" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate   `json:"candidates"`
	UsageMetadata geminiUsageMetadata `json:"usageMetadata"`
	Error         *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete issues a request against /models/{model}:generateContent.
// Gemini roles are "user"/"model"; an OpenAI-style "assistant" role is
// translated to "model", and "system" is lifted into SystemInstruction.
func (p *GoogleProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := requireAPIKey(p.cfg.APIKey); err != nil {
		return llm.Response{}, err
	}

	var system *geminiContent
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.cfg.BaseURL, req.Model, p.cfg.APIKey)
	body, status, err := postJSON(ctx, url, nil, geminiRequest{
		SystemInstruction: system,
		Contents:          contents,
		GenerationConfig:  geminiGenerationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens},
	})
	if err != nil {
		return llm.Response{}, err
	}
	if cerr := classifyStatus(status, body); cerr != nil {
		return llm.Response{}, cerr
	}

	var parsed geminiResponse
	if jerr := unmarshalStrict(body, &parsed); jerr != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("decode gemini response: %w", jerr)}
	}
	if parsed.Error != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("gemini error: %s", parsed.Error.Message)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return llm.Response{FinishReason: "empty"}, nil
	}

	cand := parsed.Candidates[0]
	var content string
	for _, part := range cand.Content.Parts {
		content += part.Text
	}

	return llm.Response{
		Content:      content,
		FinishReason: orEmpty(cand.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
