package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func completionJSON(content, model, finish string, prompt, completion int) map[string]any {
	return map[string]any{
		"model": model,
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": finish,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.Messages[1].Content != "the prompt" {
			t.Errorf("user content = %q", req.Messages[1].Content)
		}
		json.NewEncoder(w).Encode(completionJSON("the answer", "gpt-4o-mini", "stop", 1000, 500))
	}))
	defer srv.Close()

	c := NewOpenAICompat(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o-mini"}, DefaultPrices())
	got, err := c.Complete(context.Background(), "the system", "the prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "the answer" {
		t.Errorf("text = %q", got.Text)
	}
	if got.FinishReason != "stop" {
		t.Errorf("finish reason = %q", got.FinishReason)
	}
	if got.TotalTokens != 1500 {
		t.Errorf("total tokens = %d", got.TotalTokens)
	}
	// 1000 in + 500 out on gpt-4o-mini: 0.00015 + 0.0003.
	if math.Abs(got.CostUSD-0.00045) > 1e-9 {
		t.Errorf("cost = %f, want 0.00045", got.CostUSD)
	}
}

func TestComplete_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(completionJSON("ok", "m", "stop", 1, 1))
	}))
	defer srv.Close()

	c := NewOpenAICompat(Config{BaseURL: srv.URL, Model: "m"}, nil)
	got, err := c.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("expected retry to succeed, got: %v", err)
	}
	if got.Text != "ok" {
		t.Errorf("text = %q", got.Text)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestComplete_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOpenAICompat(Config{BaseURL: srv.URL, Model: "m"}, nil)
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 400)", calls.Load())
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"model": "m", "choices": []any{}})
	}))
	defer srv.Close()

	c := NewOpenAICompat(Config{BaseURL: srv.URL, Model: "m"}, nil)
	if _, err := c.Complete(context.Background(), "s", "u"); !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("err = %v, want ErrEmptyCompletion", err)
	}
}

func TestComplete_FallsBackToConfiguredModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionJSON("ok", "", "stop", 10, 10))
	}))
	defer srv.Close()

	c := NewOpenAICompat(Config{BaseURL: srv.URL, Model: "configured-model"}, nil)
	got, err := c.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "configured-model" {
		t.Errorf("model = %q, want configured fallback", got.Model)
	}
}

func TestPriceTableCost(t *testing.T) {
	prices := DefaultPrices()
	if got := prices.Cost("gpt-4o", 1000, 1000); math.Abs(got-0.0125) > 1e-9 {
		t.Errorf("gpt-4o cost = %f, want 0.0125", got)
	}
	if got := prices.Cost("unknown-local-model", 1000, 1000); got != 0 {
		t.Errorf("unknown model cost = %f, want 0", got)
	}
	var nilTable PriceTable
	if got := nilTable.Cost("gpt-4o", 1000, 1000); got != 0 {
		t.Errorf("nil table cost = %f, want 0", got)
	}
}

func TestRetryableStatusCode(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !retryableStatusCode(code) {
			t.Errorf("code %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		if retryableStatusCode(code) {
			t.Errorf("code %d should not be retryable", code)
		}
	}
}
