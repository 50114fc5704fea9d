// Package llm invokes an OpenAI-compatible chat completion endpoint,
// one shot per query, and prices the token usage.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

const (
	// maxAttempts bounds the request loop: one initial attempt plus two
	// retries on transient failures.
	maxAttempts    = 3
	baseRetryDelay = 1 * time.Second

	// DefaultTemperature keeps completions mostly deterministic while
	// leaving room for generative phrasing.
	DefaultTemperature = 0.2

	// DefaultMaxTokens bounds the completion length.
	DefaultMaxTokens = 1024
)

// ErrEmptyCompletion is returned when the endpoint answers with no
// choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Completion is one priced model response.
type Completion struct {
	Text             string  `json:"text"`
	Model            string  `json:"model"`
	FinishReason     string  `json:"finish_reason"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Client is the completion interface the engine consumes.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)
}

// Config configures the OpenAI-compatible client.
type Config struct {
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// OpenAICompat is a single-shot chat completion client for any
// OpenAI-compatible endpoint.
type OpenAICompat struct {
	cfg     Config
	pricing PriceTable
	client  *http.Client
}

// NewOpenAICompat creates the client. Zero temperature and max tokens
// take the defaults; a nil price table means zero-cost completions.
func NewOpenAICompat(cfg Config, pricing PriceTable) *OpenAICompat {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &OpenAICompat{
		cfg:     cfg,
		pricing: pricing,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one chat completion request and prices the returned
// token usage.
func (c *OpenAICompat) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	body := chatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	respBody, err := c.doPost(ctx, "/v1/chat/completions", body)
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	model := resp.Model
	if model == "" {
		model = c.cfg.Model
	}
	out := &Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            model,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		CostUSD:          c.pricing.Cost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}
	slog.Debug("llm: completion",
		"model", out.Model, "prompt_tokens", out.PromptTokens,
		"completion_tokens", out.CompletionTokens, "cost_usd", out.CostUSD)
	return out, nil
}

// retryableStatusCode returns true for HTTP status codes that warrant a
// retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

func (c *OpenAICompat) doPost(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := c.cfg.BaseURL + path

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter so concurrent queries do not
			// retry in lockstep.
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Int63n(int64(delay / 2)))
			slog.Warn("llm: retrying request",
				"url", url, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", url, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return respBody, nil
		}

		lastErr = fmt.Errorf("LLM API error %d: %s", resp.StatusCode, string(respBody))
		if !retryableStatusCode(resp.StatusCode) {
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
					select {
					case <-time.After(time.Duration(seconds) * time.Second):
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				}
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
