package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nobelqa/nobelqa"
	"github.com/nobelqa/nobelqa/embed"
	"github.com/nobelqa/nobelqa/store"
)

// insertBatch bounds one embedding request and one insert transaction.
const insertBatch = 50

// runIndex loads a chunks JSON file into the embedded store, embedding
// any chunk that arrives without a vector.
func runIndex(cfg nobelqa.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading chunks file: %w", err)
	}

	var chunks []store.IndexedChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return fmt.Errorf("parsing chunks file: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("chunks file is empty")
	}

	var embedder embed.Client
	if cfg.Embedder.BaseURL != "" {
		embedder = embed.NewRemote(embed.RemoteConfig{
			BaseURL:    cfg.Embedder.BaseURL,
			APIKey:     cfg.Embedder.APIKey,
			Dimensions: cfg.EmbeddingDim,
		})
	} else {
		embedder = embed.NewLocal(cfg.EmbeddingDim)
	}

	s, err := store.New(cfg.DBPath, cfg.EmbeddingDim)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	started := time.Now()
	var embedded int

	for start := 0; start < len(chunks); start += insertBatch {
		end := start + insertBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		var missing []int
		var texts []string
		for i := range batch {
			if len(batch[i].Embedding) == 0 {
				missing = append(missing, i)
				texts = append(texts, batch[i].Text)
			}
		}
		if len(missing) > 0 {
			vecs, err := embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fmt.Errorf("embedding batch at %d: %w", start, err)
			}
			for j, i := range missing {
				batch[i].Embedding = vecs[j]
			}
			embedded += len(missing)
		}

		if err := s.InsertChunks(ctx, batch); err != nil {
			return fmt.Errorf("inserting batch at %d: %w", start, err)
		}
		slog.Info("indexed batch", "from", start, "to", end, "total", len(chunks))
	}

	count, err := s.ChunkCount(ctx)
	if err != nil {
		return err
	}
	slog.Info("indexing complete",
		"chunks", len(chunks), "embedded", embedded, "store_total", count,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}
