package expand

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/nobelqa/nobelqa/embed"
)

const (
	// DefaultThreshold is the minimum cosine similarity for a taxonomy
	// term to join the expansion.
	DefaultThreshold = 0.35

	// DefaultLimit caps the expanded term set.
	DefaultLimit = 10
)

// Expansion is the ranked related-term set for a thematic query.
type Expansion struct {
	Terms        []string           `json:"terms"`
	Similarities map[string]float64 `json:"similarities"`

	// Seeds are terms pulled in because their theme's surface keywords
	// appear verbatim in the query, before similarity ranking.
	Seeds []string `json:"seeds,omitempty"`

	// Degraded is set when the query embedding failed and only the
	// surface-keyword seeds are available.
	Degraded bool `json:"degraded,omitempty"`
}

// Expander widens queries against a fixed taxonomy.
type Expander struct {
	tax       *Taxonomy
	embedder  embed.Client
	threshold float64
	limit     int
}

// NewExpander creates an expander. Zero threshold and limit take the
// defaults.
func NewExpander(tax *Taxonomy, embedder embed.Client, threshold float64, limit int) *Expander {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	return &Expander{tax: tax, embedder: embedder, threshold: threshold, limit: limit}
}

// Expand produces the deduplicated, similarity-ranked term set for a
// query. Deterministic for identical taxonomy and query embedding; an
// embedding failure degrades to surface-keyword seeding only.
func (e *Expander) Expand(ctx context.Context, query string) (*Expansion, error) {
	lower := strings.ToLower(query)

	// Surface-keyword seeding: themes whose terms appear verbatim in the
	// query contribute all of their terms.
	seedSet := make(map[string]bool)
	var seeds []string
	for _, theme := range e.tax.Themes() {
		hit := false
		for _, term := range e.tax.TermsOf(theme) {
			if strings.Contains(lower, term) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		for _, term := range e.tax.TermsOf(theme) {
			if !seedSet[term] {
				seedSet[term] = true
				seeds = append(seeds, term)
			}
		}
	}
	sort.Strings(seeds)

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("expand: query embedding failed, degrading to keyword seeds",
			"error", err, "seeds", len(seeds))
		terms := seeds
		if len(terms) > e.limit {
			terms = terms[:e.limit]
		}
		return &Expansion{
			Terms:        terms,
			Similarities: map[string]float64{},
			Seeds:        seeds,
			Degraded:     true,
		}, nil
	}

	// Score every taxonomy term against the query embedding, regardless
	// of theme membership.
	sims := make(map[string]float64)
	include := make(map[string]bool)
	for _, term := range e.tax.Terms() {
		vec, ok := e.tax.Vec(term)
		if !ok {
			continue
		}
		sim := embed.Cosine(queryVec, vec)
		sims[term] = sim
		if sim >= e.threshold || seedSet[term] {
			include[term] = true
		}
	}

	terms := make([]string, 0, len(include))
	for term := range include {
		terms = append(terms, term)
	}
	// Descending similarity; ties break alphabetically so the ranking is
	// stable across runs.
	sort.Slice(terms, func(i, j int) bool {
		if sims[terms[i]] != sims[terms[j]] {
			return sims[terms[i]] > sims[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > e.limit {
		terms = terms[:e.limit]
	}

	out := &Expansion{
		Terms:        terms,
		Similarities: make(map[string]float64, len(terms)),
		Seeds:        seeds,
	}
	for _, term := range terms {
		out.Similarities[term] = sims[term]
	}

	slog.Debug("expand: expansion complete",
		"seeds", len(seeds), "terms", len(terms), "threshold", e.threshold)
	return out, nil
}
