package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Speech chunks with the payload fields the retrieval filters index
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    chunk_id TEXT NOT NULL UNIQUE,
    source_type TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    laureate TEXT NOT NULL,
    year_awarded INTEGER NOT NULL,
    country TEXT,
    gender TEXT,
    category TEXT
);

-- Vector embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Per-query answer log for offline inspection
CREATE TABLE IF NOT EXISTS query_log (
    id INTEGER PRIMARY KEY,
    query_id TEXT NOT NULL,
    query TEXT NOT NULL,
    intent TEXT,
    route TEXT,
    answer TEXT,
    model_used TEXT,
    prompt_tokens INTEGER DEFAULT 0,
    completion_tokens INTEGER DEFAULT 0,
    cost_usd REAL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_chunks_laureate ON chunks(laureate);
CREATE INDEX IF NOT EXISTS idx_chunks_year ON chunks(year_awarded);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_type);
CREATE INDEX IF NOT EXISTS idx_query_log_created ON query_log(created_at);
`, embeddingDim)
}
