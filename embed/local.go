package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// Local is the in-process fallback embedder, selected by configuration when
// the remote service is unavailable. It hashes word unigrams and bigrams
// into a fixed-dimension bag-of-features vector and L2-normalizes the
// result, matching the remote contract for dimension and normalization.
// Similarity quality is far below the remote model; it exists so the
// pipeline stays functional offline and in tests.
type Local struct {
	dim int
}

// NewLocal creates a local embedder with the given output dimension.
// Dimension defaults to 1024 to match the primary remote model.
func NewLocal(dim int) *Local {
	if dim == 0 {
		dim = 1024
	}
	return &Local{dim: dim}
}

// Embed hashes the text into a unit-norm vector. Deterministic for
// identical input.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	return l.vectorize(text), nil
}

// EmbedBatch embeds each text independently.
func (l *Local) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
		out[i] = l.vectorize(t)
	}
	return out, nil
}

// Dimensions reports the output dimension.
func (l *Local) Dimensions() int {
	return l.dim
}

// Health always reports healthy; there is nothing to probe in-process.
func (l *Local) Health(_ context.Context) (*HealthStatus, error) {
	return &HealthStatus{
		Status:              "healthy",
		ModelLoaded:         true,
		EmbeddingDimensions: l.dim,
		ModelName:           "local-hash",
	}, nil
}

func (l *Local) vectorize(text string) []float32 {
	v := make([]float32, l.dim)
	words := tokenize(text)

	bump := func(feature string) {
		h := fnv.New64a()
		h.Write([]byte(feature))
		sum := h.Sum64()
		idx := int(sum % uint64(l.dim))
		// Sign from a second hash bit spreads features across both
		// directions, reducing collisions' bias.
		if sum&(1<<63) != 0 {
			v[idx] -= 1
		} else {
			v[idx] += 1
		}
	}

	for i, w := range words {
		bump(w)
		if i+1 < len(words) {
			bump(w + " " + words[i+1])
		}
	}

	return Normalize(v)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
