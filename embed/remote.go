package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxAttempts    = 3
	baseRetryDelay = 500 * time.Millisecond
)

// RemoteConfig configures the remote embedder service client.
type RemoteConfig struct {
	BaseURL    string `json:"base_url" yaml:"base_url"`
	APIKey     string `json:"api_key" yaml:"api_key"`
	Dimensions int    `json:"dimensions" yaml:"dimensions"`
}

// Remote talks to the embedder service over HTTP. Transient network errors
// and 5xx responses are retried with exponential backoff; the request body
// is idempotent so retries are safe.
type Remote struct {
	cfg    RemoteConfig
	client *http.Client
}

// NewRemote creates a remote embedder client. Dimensions defaults to 1024,
// the primary model's output width.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1024
	}
	return &Remote{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type embedRequest struct {
	APIKey string `json:"api_key"`
	Text   string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type embedBatchRequest struct {
	APIKey string   `json:"api_key"`
	Texts  []string `json:"texts"`
}

type embedBatchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed requests a single embedding.
func (r *Remote) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := r.doPost(ctx, "/embed", embedRequest{APIKey: r.cfg.APIKey, Text: text})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if err := checkDimension(resp.Embedding, r.cfg.Dimensions); err != nil {
		return nil, err
	}
	return Normalize(resp.Embedding), nil
}

// EmbedBatch requests embeddings for up to MaxBatchSize texts in one call.
func (r *Remote) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(texts), MaxBatchSize)
	}

	body, err := r.doPost(ctx, "/embed_batch", embedBatchRequest{APIKey: r.cfg.APIKey, Texts: texts})
	if err != nil {
		return nil, err
	}

	var resp embedBatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding embed_batch response: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	for i, v := range resp.Embeddings {
		if err := checkDimension(v, r.cfg.Dimensions); err != nil {
			return nil, err
		}
		resp.Embeddings[i] = Normalize(v)
	}
	return resp.Embeddings, nil
}

// Dimensions reports the configured model dimension.
func (r *Remote) Dimensions() int {
	return r.cfg.Dimensions
}

// Health calls the service health endpoint.
func (r *Remote) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedder health: status %d", resp.StatusCode)
	}

	var h HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	return &h, nil
}

// retryableStatusCode returns true for status codes that warrant a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout ||
		code == http.StatusInternalServerError
}

func (r *Remote) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := r.cfg.BaseURL + path

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			slog.Warn("embed: retrying request",
				"url", url, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if r.cfg.APIKey != "" {
			req.Header.Set("X-API-Key", r.cfg.APIKey)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", url, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		lastErr = fmt.Errorf("embedder API error %d: %s", resp.StatusCode, string(body))
		if !retryableStatusCode(resp.StatusCode) {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("embed: max retries exceeded: %w", lastErr)
}
