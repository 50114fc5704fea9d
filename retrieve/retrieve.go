// Package retrieve turns queries into ranked chunk sets via the embedder
// and the vector store. Two retrievers share one contract: a plain
// single-query path and a thematic multi-query path with merged results.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nobelqa/nobelqa/embed"
	"github.com/nobelqa/nobelqa/intent"
	"github.com/nobelqa/nobelqa/vector"
)

// DefaultThreshold is the global score floor when neither the caller nor
// the subtype profile supplies one.
const DefaultThreshold = 0.25

// relaxFactor is the single-step threshold reduction applied when fewer
// than MinReturn chunks pass the original threshold.
const relaxFactor = 0.75

// Params sizes one retrieval operation.
type Params struct {
	TopK           int
	ScoreThreshold float64
	Filters        vector.Filters
	MinReturn      int
	MaxReturn      int
}

// Profile is the per-subtype retrieval sizing.
type Profile struct {
	TopK      int
	MinReturn int
	MaxReturn int
}

// ProfileFor returns the sizing profile for a thematic subtype.
func ProfileFor(subtype intent.Subtype) Profile {
	switch subtype {
	case intent.Synthesis:
		return Profile{TopK: 15, MinReturn: 5, MaxReturn: 12}
	case intent.Enumerative:
		return Profile{TopK: 20, MinReturn: 8, MaxReturn: 16}
	case intent.Analytical:
		return Profile{TopK: 20, MinReturn: 8, MaxReturn: 14}
	default:
		return Profile{TopK: 12, MinReturn: 4, MaxReturn: 10}
	}
}

// FactualFallbackProfile sizes the RAG fallback when no metadata rule
// matched a factual query.
func FactualFallbackProfile() Profile {
	return Profile{TopK: 5, MinReturn: 3, MaxReturn: 5}
}

// GenerativeProfile sizes retrieval for generative queries.
func GenerativeProfile() Profile {
	return Profile{TopK: 10, MinReturn: 3, MaxReturn: 8}
}

// Params converts a profile to retrieval parameters with the default
// threshold.
func (p Profile) Params(filters vector.Filters) Params {
	return Params{
		TopK:           p.TopK,
		ScoreThreshold: DefaultThreshold,
		Filters:        filters,
		MinReturn:      p.MinReturn,
		MaxReturn:      p.MaxReturn,
	}
}

// Plain retrieves with a single query embedding and a single k-NN search.
type Plain struct {
	embedder embed.Client
	searcher vector.Searcher
}

// NewPlain creates the plain retriever.
func NewPlain(embedder embed.Client, searcher vector.Searcher) *Plain {
	return &Plain{embedder: embedder, searcher: searcher}
}

// Retrieve embeds the query, searches once, and enforces the return
// bounds. If fewer than MinReturn chunks pass the threshold, the search is
// repeated once at threshold×0.75.
func (r *Plain) Retrieve(ctx context.Context, query string, p Params) ([]vector.ScoredChunk, error) {
	if err := vector.ValidateFilters(p.Filters); err != nil {
		return nil, err
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.searcher.Search(ctx, vec, p.TopK, p.ScoreThreshold, p.Filters)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if len(results) < p.MinReturn {
		relaxed := p.ScoreThreshold * relaxFactor
		slog.Debug("retrieve: relaxing threshold",
			"got", len(results), "min_return", p.MinReturn,
			"threshold", p.ScoreThreshold, "relaxed", relaxed)
		results, err = r.searcher.Search(ctx, vec, p.TopK, relaxed, p.Filters)
		if err != nil {
			return nil, fmt.Errorf("vector search (relaxed): %w", err)
		}
	}

	for i := range results {
		results[i].SourceTerm = query
	}
	return capResults(results, p.MaxReturn), nil
}

// capResults truncates to maxReturn and rewrites ranks.
func capResults(results []vector.ScoredChunk, maxReturn int) []vector.ScoredChunk {
	if maxReturn > 0 && len(results) > maxReturn {
		results = results[:maxReturn]
	}
	for i := range results {
		results[i].Rank = i
	}
	return results
}
