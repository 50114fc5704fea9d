package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nobelqa/nobelqa/embed"
	"github.com/nobelqa/nobelqa/vector"
)

// DefaultFanout bounds concurrent per-term vector searches within one
// query.
const DefaultFanout = 8

// Thematic retrieves over the expanded term set plus the original query,
// merging per-term result sets by chunk id with max-score wins.
type Thematic struct {
	embedder embed.Client
	searcher vector.Searcher
	fanout   int
}

// NewThematic creates the thematic retriever. Zero fanout takes the
// default.
func NewThematic(embedder embed.Client, searcher vector.Searcher, fanout int) *Thematic {
	if fanout <= 0 {
		fanout = DefaultFanout
	}
	return &Thematic{embedder: embedder, searcher: searcher, fanout: fanout}
}

// Retrieve embeds the query and every expanded term (batched when the set
// fits one batch), runs one k-NN search per embedding concurrently, merges
// by chunk id keeping the maximum score, reranks, and enforces the return
// bounds.
func (r *Thematic) Retrieve(ctx context.Context, query string, terms []string, p Params) ([]vector.ScoredChunk, error) {
	if err := vector.ValidateFilters(p.Filters); err != nil {
		return nil, err
	}

	queries := make([]string, 0, len(terms)+1)
	queries = append(queries, query)
	seen := map[string]bool{query: true}
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			queries = append(queries, t)
		}
	}

	vecs, err := r.embedAll(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embedding query terms: %w", err)
	}

	// Smaller per-search k so the merged set does not balloon with many
	// terms, rounded up so uneven splits do not under-fetch.
	num := p.TopK * 3
	den := 2 * len(queries)
	perQueryK := (num+den-1)/den + 2

	merged, err := r.searchAndMerge(ctx, queries, vecs, perQueryK, p)
	if err != nil {
		return nil, err
	}

	if len(merged) < p.MinReturn {
		relaxed := p.ScoreThreshold * relaxFactor
		slog.Debug("retrieve: thematic relaxing threshold",
			"got", len(merged), "min_return", p.MinReturn,
			"threshold", p.ScoreThreshold, "relaxed", relaxed)
		relaxedParams := p
		relaxedParams.ScoreThreshold = relaxed
		merged, err = r.searchAndMerge(ctx, queries, vecs, perQueryK, relaxedParams)
		if err != nil {
			return nil, err
		}
	}

	slog.Debug("retrieve: thematic merge complete",
		"queries", len(queries), "per_query_k", perQueryK, "merged", len(merged))
	return capResults(merged, p.MaxReturn), nil
}

// embedAll batch-embeds when the set fits a single call, otherwise embeds
// sequentially.
func (r *Thematic) embedAll(ctx context.Context, queries []string) ([][]float32, error) {
	if len(queries) <= embed.MaxBatchSize {
		return r.embedder.EmbedBatch(ctx, queries)
	}
	vecs := make([][]float32, len(queries))
	for i, q := range queries {
		v, err := r.embedder.Embed(ctx, q)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

// searchAndMerge fans out one search per embedding with bounded
// concurrency, then reduces into a deduplicated, reranked result set.
// The first hard failure cancels the remaining searches.
func (r *Thematic) searchAndMerge(ctx context.Context, queries []string, vecs [][]float32, perQueryK int, p Params) ([]vector.ScoredChunk, error) {
	type hit struct {
		chunk vector.ScoredChunk
		term  string
	}

	var mu sync.Mutex
	best := make(map[string]hit)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanout)

	for i := range queries {
		g.Go(func() error {
			results, err := r.searcher.Search(gctx, vecs[i], perQueryK, p.ScoreThreshold, p.Filters)
			if err != nil {
				return fmt.Errorf("search for %q: %w", queries[i], err)
			}
			mu.Lock()
			for _, res := range results {
				prev, ok := best[res.ChunkID]
				if !ok || res.Score > prev.chunk.Score ||
					(res.Score == prev.chunk.Score && queries[i] < prev.term) {
					best[res.ChunkID] = hit{chunk: res, term: queries[i]}
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]vector.ScoredChunk, 0, len(best))
	for _, h := range best {
		c := h.chunk
		c.SourceTerm = h.term
		merged = append(merged, c)
	}
	vector.SortStable(merged)
	return merged, nil
}
