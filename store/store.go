// Package store is the embedded vector backend: speech chunks and their
// embeddings in a single SQLite file via sqlite-vec, plus a query log.
// It serves deployments that run without a Qdrant instance.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nobelqa/nobelqa/vector"
)

func init() {
	sqlite_vec.Auto()
}

// overfetchFactor widens the k-NN candidate set when payload filters
// will discard part of it.
const overfetchFactor = 4

// IndexedChunk pairs a chunk with its embedding for insertion.
type IndexedChunk struct {
	vector.Chunk
	Embedding []float32 `json:"embedding"`
}

// QueryLog is one answered query for the query_log table.
type QueryLog struct {
	QueryID          string  `json:"query_id"`
	Query            string  `json:"query"`
	Intent           string  `json:"intent"`
	Route            string  `json:"route"`
	Answer           string  `json:"answer"`
	ModelUsed        string  `json:"model_used"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Store wraps the SQLite database. It implements vector.Searcher.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// InsertChunks stores chunks and their embeddings in one transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []IndexedChunk) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		chunkStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (chunk_id, source_type, chunk_index, content, laureate, year_awarded, country, gender, category)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				source_type = excluded.source_type,
				chunk_index = excluded.chunk_index,
				content = excluded.content,
				laureate = excluded.laureate,
				year_awarded = excluded.year_awarded,
				country = excluded.country,
				gender = excluded.gender,
				category = excluded.category
		`)
		if err != nil {
			return err
		}
		defer chunkStmt.Close()

		for _, c := range chunks {
			if len(c.Embedding) != s.embeddingDim {
				return fmt.Errorf("chunk %s: embedding dimension %d, want %d",
					c.ChunkID, len(c.Embedding), s.embeddingDim)
			}
			if _, err := chunkStmt.ExecContext(ctx,
				c.ChunkID, c.SourceType, c.ChunkIndex, c.Text,
				c.Laureate, c.YearAwarded, c.Country, c.Gender, c.Category); err != nil {
				return fmt.Errorf("inserting chunk %s: %w", c.ChunkID, err)
			}

			var rowID int64
			if err := tx.QueryRowContext(ctx,
				"SELECT id FROM chunks WHERE chunk_id = ?", c.ChunkID).Scan(&rowID); err != nil {
				return fmt.Errorf("resolving chunk %s: %w", c.ChunkID, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
				rowID, serializeFloat32(c.Embedding)); err != nil {
				return fmt.Errorf("inserting embedding for %s: %w", c.ChunkID, err)
			}
		}
		return nil
	})
}

// Search performs a filtered k-NN search. The vec0 MATCH cannot apply
// payload predicates, so the candidate set is over-fetched and filtered
// in the join.
func (s *Store) Search(ctx context.Context, vec []float32, topK int, threshold float64, filters vector.Filters) ([]vector.ScoredChunk, error) {
	if err := vector.ValidateFilters(filters); err != nil {
		return nil, err
	}
	if len(vec) != s.embeddingDim {
		return nil, fmt.Errorf("query dimension %d, want %d", len(vec), s.embeddingDim)
	}

	k := topK
	if len(filters) > 0 {
		k = topK * overfetchFactor
	}

	where, args := filterClauses(filters)
	query := fmt.Sprintf(`
		SELECT c.chunk_id, c.source_type, c.chunk_index, c.content,
			c.laureate, c.year_awarded, c.country, c.gender, c.category,
			v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?%s
		ORDER BY v.distance
	`, where)

	queryArgs := append([]any{serializeFloat32(vec), k}, args...)
	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []vector.ScoredChunk
	for rows.Next() {
		var sc vector.ScoredChunk
		var country, gender, category sql.NullString
		var distance float64
		if err := rows.Scan(&sc.ChunkID, &sc.SourceType, &sc.ChunkIndex, &sc.Text,
			&sc.Laureate, &sc.YearAwarded, &country, &gender, &category,
			&distance); err != nil {
			return nil, err
		}
		sc.Country = country.String
		sc.Gender = gender.String
		sc.Category = category.String
		// vec0 distance is cosine distance; similarity = 1 - distance.
		sc.Score = 1.0 - distance
		if sc.Score < threshold {
			continue
		}
		results = append(results, sc)
		if len(results) >= topK {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vector.SortStable(results)
	return results, nil
}

// Health pings the database and confirms the chunks table is readable.
func (s *Store) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}
	return nil
}

// ChunkCount returns the number of indexed chunks.
func (s *Store) ChunkCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

// LogQuery appends one answered query to the query log.
func (s *Store) LogQuery(ctx context.Context, q QueryLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (query_id, query, intent, route, answer, model_used, prompt_tokens, completion_tokens, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.QueryID, q.Query, q.Intent, q.Route, q.Answer, q.ModelUsed,
		q.PromptTokens, q.CompletionTokens, q.CostUSD)
	return err
}

// filterClauses translates payload filters to SQL predicates.
func filterClauses(filters vector.Filters) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	var sb strings.Builder
	var args []any
	for _, field := range vector.IndexedFields() {
		value, ok := filters[field]
		if !ok {
			continue
		}
		switch field {
		case "year":
			sb.WriteString(" AND c.year_awarded = ?")
		case "source_type":
			sb.WriteString(" AND c.source_type = ?")
		default:
			fmt.Fprintf(&sb, " AND c.%s = ?", field)
		}
		args = append(args, value)
	}
	return sb.String(), args
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
