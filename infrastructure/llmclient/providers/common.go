// Package providers implements the closed set of LLM provider adapters:
// openai, anthropic, google, deepseek, openrouter, and a no-network
// random_local baseline. Each adapter implements domain/llm.Provider
// directly over net/http + encoding/json; only the chat-completion
// request/response contract of each provider is modeled.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

const defaultHTTPTimeout = 60 * time.Second

// httpClient is the shared transport for every adapter; each call is
// bounded by the caller's ctx and by this client's 60-second Timeout,
// whichever ends first.
var httpClient = &http.Client{Timeout: defaultHTTPTimeout}

// postJSON issues a POST with a JSON body and the given headers, and
// returns the raw response body plus status code. Network-layer failures
// (dial, DNS, ctx deadline) are always transient.
func postJSON(ctx context.Context, url string, headers map[string]string, body any) ([]byte, int, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, 0, &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, 0, &llm.PermanentError{Kind: "bad_request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, &llm.TransientError{Kind: "transport", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &llm.TransientError{Kind: "transport", Err: err}
	}
	return respBody, resp.StatusCode, nil
}

// classifyStatus maps an HTTP status code to the provider error
// taxonomy: 401/403 and 400 are permanent, 429 and 5xx are transient.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &llm.PermanentError{Kind: "auth", Err: fmt.Errorf("http %d: %s", status, truncate(body))}
	case status == http.StatusTooManyRequests:
		return &llm.TransientError{Kind: "rate_limit", Err: fmt.Errorf("http %d: %s", status, truncate(body))}
	case status >= 500:
		return &llm.TransientError{Kind: "server_error", Err: fmt.Errorf("http %d: %s", status, truncate(body))}
	case status >= 400:
		return &llm.PermanentError{Kind: "bad_request", Err: fmt.Errorf("http %d: %s", status, truncate(body))}
	default:
		return &llm.TransientError{Kind: "transport", Err: fmt.Errorf("unexpected http %d: %s", status, truncate(body))}
	}
}

func truncate(b []byte) string {
	const max = 500
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

func requireAPIKey(key string) error {
	if key == "" {
		return &llm.PermanentError{Kind: "auth", Err: llm.ErrNoAPIKey}
	}
	return nil
}

func unmarshalStrict(body []byte, v any) error {
	return json.Unmarshal(body, v)
}
