//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nobelqa/nobelqa/vector"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunk(id, laureate string, year int, country, gender string, emb []float32) IndexedChunk {
	return IndexedChunk{
		Chunk: vector.Chunk{
			ChunkID:     id,
			SourceType:  vector.SourceNobelLecture,
			ChunkIndex:  0,
			Text:        "text of " + id,
			Laureate:    laureate,
			YearAwarded: year,
			Country:     country,
			Gender:      gender,
			Category:    "Literature",
		},
		Embedding: emb,
	}
}

func seedChunks(t *testing.T, s *Store) {
	t.Helper()
	err := s.InsertChunks(context.Background(), []IndexedChunk{
		testChunk("morrison_0001", "Toni Morrison", 1993, "USA", "female", []float32{1, 0, 0, 0}),
		testChunk("morrison_0002", "Toni Morrison", 1993, "USA", "female", []float32{0.9, 0.1, 0, 0}),
		testChunk("dylan_0001", "Bob Dylan", 2016, "USA", "male", []float32{0, 1, 0, 0}),
		testChunk("tokarczuk_0001", "Olga Tokarczuk", 2018, "Poland", "female", []float32{0, 0, 1, 0}),
	})
	if err != nil {
		t.Fatalf("inserting chunks: %v", err)
	}
}

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 4 {
		t.Fatalf("embedding dim = %d, want 4", s.EmbeddingDim())
	}
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("health on fresh store: %v", err)
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	// New already migrates; a second run must be a no-op.
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("re-running migrations: %v", err)
	}
}

func TestInsertChunks(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)

	n, err := s.ChunkCount(context.Background())
	if err != nil {
		t.Fatalf("counting chunks: %v", err)
	}
	if n != 4 {
		t.Fatalf("chunk count = %d, want 4", n)
	}
}

func TestInsertChunks_UpsertByChunkID(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)

	updated := testChunk("morrison_0001", "Toni Morrison", 1993, "USA", "female", []float32{0, 0, 0, 1})
	updated.Text = "revised text"
	if err := s.InsertChunks(context.Background(), []IndexedChunk{updated}); err != nil {
		t.Fatalf("upserting chunk: %v", err)
	}

	n, err := s.ChunkCount(context.Background())
	if err != nil {
		t.Fatalf("counting chunks: %v", err)
	}
	if n != 4 {
		t.Fatalf("chunk count after upsert = %d, want 4", n)
	}

	results, err := s.Search(context.Background(), []float32{0, 0, 0, 1}, 1, 0.5, nil)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "morrison_0001" {
		t.Fatalf("results = %+v, want the upserted chunk", results)
	}
	if results[0].Text != "revised text" {
		t.Errorf("text = %q, want the upserted text", results[0].Text)
	}
}

func TestInsertChunks_DimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertChunks(context.Background(), []IndexedChunk{
		testChunk("bad", "X", 2000, "", "", []float32{1, 0}),
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)

	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 2, 0.1, nil)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != "morrison_0001" {
		t.Errorf("top result = %s, want the exact-match chunk", results[0].ChunkID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not ordered by descending score")
	}
	for i, r := range results {
		if r.Rank != i {
			t.Errorf("rank[%d] = %d", i, r.Rank)
		}
	}
}

func TestSearch_ThresholdDropsWeakMatches(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)

	// Orthogonal chunks score ~0 against this query vector.
	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 10, 0.5, nil)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	for _, r := range results {
		if r.Score < 0.5 {
			t.Errorf("chunk %s scored %.3f below the threshold", r.ChunkID, r.Score)
		}
		if r.Laureate != "Toni Morrison" {
			t.Errorf("unexpected chunk %s above threshold", r.ChunkID)
		}
	}
}

func TestSearch_Filters(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)
	ctx := context.Background()

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 10, 0, vector.Filters{"laureate": "Bob Dylan"})
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	for _, r := range results {
		if r.Laureate != "Bob Dylan" {
			t.Errorf("filter leaked chunk from %s", r.Laureate)
		}
	}
	if len(results) == 0 {
		t.Fatal("expected Dylan chunks with threshold 0")
	}

	results, err = s.Search(ctx, []float32{1, 0, 0, 0}, 10, 0, vector.Filters{"year": "2018", "gender": "female"})
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "tokarczuk_0001" {
		t.Fatalf("conjunctive filter results = %+v, want only the 2018 chunk", results)
	}
}

func TestSearch_UnsupportedFilter(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 5, 0, vector.Filters{"publisher": "x"})
	if err == nil {
		t.Fatal("expected unsupported filter error")
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Search(context.Background(), []float32{1, 0}, 5, 0, nil); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestLogQuery(t *testing.T) {
	s := newTestStore(t)
	err := s.LogQuery(context.Background(), QueryLog{
		QueryID:          "q-1",
		Query:            "who won in 1982?",
		Intent:           "factual",
		Route:            "metadata",
		Answer:           "Gabriel García Márquez won in 1982.",
		ModelUsed:        "",
		PromptTokens:     0,
		CompletionTokens: 0,
		CostUSD:          0,
	})
	if err != nil {
		t.Fatalf("logging query: %v", err)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM query_log WHERE query_id = ?", "q-1").Scan(&n); err != nil {
		t.Fatalf("reading query_log: %v", err)
	}
	if n != 1 {
		t.Errorf("query_log rows = %d, want 1", n)
	}
}

func TestSerializeFloat32(t *testing.T) {
	got := serializeFloat32([]float32{1})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if len(got) != 4 {
		t.Fatalf("length = %d, want 4", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bytes = %v, want %v (little-endian 1.0)", got, want)
		}
	}
}
