// Package providers contains the oracle bindings. Only an OpenAI-compatible
// HTTP binding exists today; everything upstream depends on
// schema.LLMProvider, not on this package's concrete types.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
)

// OpenAIProvider makes direct HTTP calls to any OpenAI-compatible
// /chat/completions endpoint. Transient failures (network errors, 429,
// 5xx) are retried with exponential backoff up to a bounded attempt count;
// callers see one atomic round trip.
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	maxAttempts  int
	retryDelay   time.Duration
	httpClient   *http.Client
}

// NewOpenAIProvider constructs a provider from the oracle config section.
func NewOpenAIProvider(cfg config.OpenAIConfig) *OpenAIProvider {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	attempts := cfg.MaxRetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := time.Duration(cfg.RetryDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &OpenAIProvider{
		apiKey:       cfg.APIKey,
		apiBase:      base,
		defaultModel: cfg.Model,
		maxAttempts:  attempts,
		retryDelay:   delay,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Complete implements schema.LLMProvider.
func (p *OpenAIProvider) Complete(
	ctx context.Context,
	messages []schema.PromptMessage,
	opts schema.ChatOptions,
) (string, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	body := map[string]any{
		"model":       model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	delay := p.retryDelay
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			slog.Debug("retrying completion", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		content, retryable, err := p.complete(ctx, data)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		slog.Warn("completion attempt failed", "attempt", attempt, "err", err)
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", p.maxAttempts, lastErr)
}

// complete performs one HTTP round trip. The second return value reports
// whether the failure is worth retrying.
func (p *OpenAIProvider) complete(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("API error %d: %s", resp.StatusCode, friendlyHTTPError(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("response has no choices")
	}

	return parsed.Choices[0].Message.Content, false, nil
}

func friendlyHTTPError(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
