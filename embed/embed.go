// Package embed produces unit-norm query and passage embeddings, either
// through the remote embedder service or an in-process fallback model.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// MaxBatchSize is the largest batch the embedder service accepts. Requests
// above this are rejected before any network call.
const MaxBatchSize = 50

// normTolerance is the allowed deviation from unit length.
const normTolerance = 1e-4

var (
	// ErrBatchTooLarge is returned for batches above MaxBatchSize.
	ErrBatchTooLarge = errors.New("embed: batch exceeds maximum size")

	// ErrEmptyText is returned when asked to embed an empty string.
	ErrEmptyText = errors.New("embed: empty text")
)

// Client is the embedding contract. All outputs are L2-normalized within
// 1e-4 and have the fixed dimension of the configured model.
type Client interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the fixed output dimension.
	Dimensions() int

	// Health probes the backing model.
	Health(ctx context.Context) (*HealthStatus, error)
}

// HealthStatus mirrors the embedder service health response.
type HealthStatus struct {
	Status              string `json:"status"`
	ModelLoaded         bool   `json:"model_loaded"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	ModelName           string `json:"model_name"`
}

// Healthy reports whether the service considers itself usable.
func (h *HealthStatus) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

// Normalize scales v to unit length in place and returns it. Vectors that
// are already within tolerance are left untouched so repeated normalization
// is a no-op.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.Abs(norm-1.0) <= normTolerance {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Cosine returns the cosine similarity of two unit-norm vectors, i.e. their
// dot product. Mismatched dimensions yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// checkDimension validates a returned vector against the expected dimension.
func checkDimension(v []float32, want int) error {
	if len(v) != want {
		return fmt.Errorf("embed: dimension mismatch: got %d, want %d", len(v), want)
	}
	return nil
}
