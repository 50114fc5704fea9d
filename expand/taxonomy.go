// Package expand widens thematic queries with related terms from a keyword
// taxonomy ranked by embedding-space similarity.
package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nobelqa/nobelqa/embed"
)

// Taxonomy maps theme names to related terms, with a unit-norm embedding
// per term. Immutable after load; shared read-only across queries.
type Taxonomy struct {
	themes    map[string][]string
	termTheme map[string]string // term -> owning theme (first wins)
	termVecs  map[string][]float32
	terms     []string // all terms, sorted for deterministic iteration
}

// taxonomyFile is the on-disk artifact layout. The embeddings block is
// optional; when absent, terms are embedded at load with the same model
// that embeds queries.
type taxonomyFile struct {
	Themes     map[string][]string  `json:"themes"`
	Embeddings map[string][]float32 `json:"embeddings,omitempty"`
}

// LoadTaxonomy reads the taxonomy artifact. If term embeddings are missing
// from the file they are computed through the embedder in batches.
func LoadTaxonomy(ctx context.Context, path string, embedder embed.Client) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}

	var file taxonomyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}

	t := &Taxonomy{
		themes:    make(map[string][]string, len(file.Themes)),
		termTheme: make(map[string]string),
		termVecs:  make(map[string][]float32),
	}

	// Deterministic theme order so duplicate terms always resolve to the
	// same owner (first wins).
	themeNames := make([]string, 0, len(file.Themes))
	for name := range file.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, theme := range themeNames {
		for _, raw := range file.Themes[theme] {
			term := strings.ToLower(strings.TrimSpace(raw))
			if term == "" {
				continue
			}
			if _, dup := t.termTheme[term]; dup {
				continue
			}
			t.termTheme[term] = theme
			t.themes[theme] = append(t.themes[theme], term)
			t.terms = append(t.terms, term)
		}
	}
	sort.Strings(t.terms)

	for term, vec := range file.Embeddings {
		term = strings.ToLower(strings.TrimSpace(term))
		if _, known := t.termTheme[term]; known {
			t.termVecs[term] = embed.Normalize(vec)
		}
	}

	if missing := t.missingVecs(); len(missing) > 0 {
		if err := t.embedTerms(ctx, embedder, missing); err != nil {
			return nil, fmt.Errorf("embedding taxonomy terms: %w", err)
		}
	}

	return t, nil
}

// Themes returns the theme names, sorted.
func (t *Taxonomy) Themes() []string {
	names := make([]string, 0, len(t.themes))
	for n := range t.themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Terms returns all terms, sorted.
func (t *Taxonomy) Terms() []string {
	return t.terms
}

// TermsOf returns the terms of one theme.
func (t *Taxonomy) TermsOf(theme string) []string {
	return t.themes[theme]
}

// Vec returns the embedding for a term, if present.
func (t *Taxonomy) Vec(term string) ([]float32, bool) {
	v, ok := t.termVecs[term]
	return v, ok
}

func (t *Taxonomy) missingVecs() []string {
	var missing []string
	for _, term := range t.terms {
		if _, ok := t.termVecs[term]; !ok {
			missing = append(missing, term)
		}
	}
	return missing
}

func (t *Taxonomy) embedTerms(ctx context.Context, embedder embed.Client, terms []string) error {
	for start := 0; start < len(terms); start += embed.MaxBatchSize {
		end := start + embed.MaxBatchSize
		if end > len(terms) {
			end = len(terms)
		}
		batch := terms[start:end]
		vecs, err := embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return err
		}
		for i, term := range batch {
			t.termVecs[term] = vecs[i]
		}
	}
	return nil
}
