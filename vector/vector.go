// Package vector defines the chunk retrieval unit and the vector store
// search contract shared by the remote (Qdrant) and embedded (sqlite-vec)
// backends.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Source types for speech chunks.
const (
	SourceNobelLecture     = "nobel_lecture"
	SourceCeremonySpeech   = "ceremony_speech"
	SourceAcceptanceSpeech = "acceptance_speech"
)

// ErrUnsupportedFilterField is returned when a filter references a payload
// field that is not indexed.
var ErrUnsupportedFilterField = errors.New("vector: unsupported filter field")

// Chunk is the denormalized retrieval unit: a span of a laureate's speech
// plus the laureate fields copied in at index-build time.
type Chunk struct {
	ChunkID     string `json:"chunk_id"`
	SourceType  string `json:"source_type"`
	ChunkIndex  int    `json:"chunk_index"`
	Text        string `json:"text"`
	Laureate    string `json:"laureate"`
	YearAwarded int    `json:"year_awarded"`
	Country     string `json:"country"`
	Gender      string `json:"gender"`
	Category    string `json:"category"`
}

// ScoredChunk is a chunk returned from a k-NN search with its similarity
// score and 0-based rank. SourceTerm records which query string produced
// the winning score when results from multiple term searches are merged.
type ScoredChunk struct {
	Chunk
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	SourceTerm string  `json:"source_term,omitempty"`
}

// Filters is a conjunction of equality predicates over indexed payload
// fields.
type Filters map[string]string

// indexedFields are the payload fields that may appear in a filter.
var indexedFields = map[string]bool{
	"laureate":    true,
	"country":     true,
	"gender":      true,
	"year":        true,
	"source_type": true,
	"category":    true,
}

// IndexedFields returns the filterable payload fields in a fixed order.
func IndexedFields() []string {
	return []string{"laureate", "country", "gender", "year", "source_type", "category"}
}

// ValidateFilters checks every filter key against the indexed payload
// fields. Returns ErrUnsupportedFilterField for the first unknown key.
func ValidateFilters(f Filters) error {
	for k := range f {
		if !indexedFields[k] {
			return fmt.Errorf("%w: %q", ErrUnsupportedFilterField, k)
		}
	}
	return nil
}

// Searcher is the k-NN search contract. Implementations drop results whose
// score falls below threshold, apply filters as a conjunction of equality
// predicates, and return results ordered by descending score with ties
// broken by chunk id ascending.
type Searcher interface {
	Search(ctx context.Context, vec []float32, topK int, threshold float64, filters Filters) ([]ScoredChunk, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error
}

// PointID derives the deterministic point id for a chunk: UUID-v5 over the
// chunk id. Stable across index rebuilds.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// SortStable orders results by descending score, breaking ties by chunk id
// ascending, and rewrites the 0-based ranks. Shared by both backends so
// ranking is deterministic regardless of transport ordering.
func SortStable(results []ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	for i := range results {
		results[i].Rank = i
	}
}
