package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures the remote vector store client.
type QdrantConfig struct {
	Host       string `json:"host" yaml:"host"`
	Port       int    `json:"port" yaml:"port"`
	APIKey     string `json:"api_key" yaml:"api_key"`
	UseTLS     bool   `json:"use_tls" yaml:"use_tls"`
	Collection string `json:"collection" yaml:"collection"`
}

// QdrantStore is the remote Searcher backed by a Qdrant collection with
// cosine distance. The client holds a pooled gRPC connection shared across
// queries; retries are not needed here because gRPC handles transient
// reconnects and the engine treats failures as StoreUnavailable.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore connects to Qdrant and returns a Searcher over the
// configured collection.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "speech_chunks"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	return &QdrantStore{client: client, collection: cfg.Collection}, nil
}

// Search performs a filtered k-NN query and maps payloads back to chunks.
func (s *QdrantStore) Search(ctx context.Context, vec []float32, topK int, threshold float64, filters Filters) ([]ScoredChunk, error) {
	if err := ValidateFilters(filters); err != nil {
		return nil, err
	}

	req := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if threshold > 0 {
		t := float32(threshold)
		req.ScoreThreshold = &t
	}
	if len(filters) > 0 {
		filter, err := buildFilter(filters)
		if err != nil {
			return nil, err
		}
		req.Filter = filter
	}

	resp, err := s.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]ScoredChunk, 0, len(resp.Result))
	for _, p := range resp.Result {
		results = append(results, ScoredChunk{
			Chunk: chunkFromPayload(p.Payload),
			Score: float64(p.Score),
		})
	}

	SortStable(results)
	slog.Debug("vector: qdrant search complete",
		"collection", s.collection, "top_k", topK,
		"threshold", threshold, "results", len(results))
	return results, nil
}

// Health checks that the collection is reachable.
func (s *QdrantStore) Health(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant health: %w", err)
	}
	if !exists {
		return fmt.Errorf("qdrant health: collection %q does not exist", s.collection)
	}
	return nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// buildFilter converts equality predicates to a Qdrant must-filter.
// The year field is matched as an integer, everything else as a keyword.
func buildFilter(filters Filters) (*qdrant.Filter, error) {
	conditions := make([]*qdrant.Condition, 0, len(filters))
	for field, value := range filters {
		if field == "year" {
			year, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: year filter %q is not an integer", ErrUnsupportedFilterField, value)
			}
			conditions = append(conditions, qdrant.NewMatchInt("year", int64(year)))
			continue
		}
		conditions = append(conditions, qdrant.NewMatch(field, value))
	}
	return &qdrant.Filter{Must: conditions}, nil
}

// chunkFromPayload maps a Qdrant payload back to the chunk record.
func chunkFromPayload(payload map[string]*qdrant.Value) Chunk {
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	num := func(key string) int {
		if v, ok := payload[key]; ok {
			return int(v.GetIntegerValue())
		}
		return 0
	}
	return Chunk{
		ChunkID:     str("chunk_id"),
		SourceType:  str("source_type"),
		ChunkIndex:  num("chunk_index"),
		Text:        str("text"),
		Laureate:    str("laureate"),
		YearAwarded: num("year"),
		Country:     str("country"),
		Gender:      str("gender"),
		Category:    str("category"),
	}
}
