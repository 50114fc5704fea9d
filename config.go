package nobelqa

import (
	"os"
	"strconv"
	"time"

	"github.com/nobelqa/nobelqa/llm"
)

// Config holds all configuration for the question answering engine.
type Config struct {
	// Backend selects the vector store: "qdrant" for a remote instance,
	// "embedded" for the local sqlite-vec database.
	Backend string `json:"backend"`

	// DBPath is the sqlite-vec database file for the embedded backend.
	DBPath string `json:"db_path"`

	// EmbeddingDim must match the embedding model's output width.
	EmbeddingDim int `json:"embedding_dim"`

	// Embedder is the remote embedding service. An empty BaseURL selects
	// the deterministic local embedder (tests, offline development).
	Embedder EmbedderConfig `json:"embedder"`

	// Qdrant configures the remote vector store backend.
	Qdrant QdrantConfig `json:"qdrant"`

	// LLM is the completion endpoint.
	LLM llm.Config `json:"llm"`

	// Prices maps model names to USD rates. Nil takes the defaults.
	Prices llm.PriceTable `json:"prices,omitempty"`

	// LaureatesPath is the laureate metadata JSON artifact.
	LaureatesPath string `json:"laureates_path"`

	// TaxonomyPath is the keyword taxonomy JSON artifact.
	TaxonomyPath string `json:"taxonomy_path"`

	// AuditDir is where per-query JSONL audit files are written.
	AuditDir string `json:"audit_dir"`

	// QueryDeadline bounds one Answer call end to end.
	QueryDeadline time.Duration `json:"query_deadline"`

	// PromptTokenBudget bounds the rendered prompt.
	PromptTokenBudget int `json:"prompt_token_budget"`

	// SearchFanout bounds concurrent per-term searches in thematic
	// retrieval.
	SearchFanout int `json:"search_fanout"`

	// Environment labels log output ("development", "production").
	Environment string `json:"environment"`
}

// EmbedderConfig configures the embedding service endpoint.
type EmbedderConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// QdrantConfig configures the remote vector store.
type QdrantConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	APIKey     string `json:"api_key"`
	UseTLS     bool   `json:"use_tls"`
	Collection string `json:"collection"`
}

// DefaultConfig returns a Config with sensible defaults for local use:
// embedded vector store, local embedder, audit logs in ./audit.
func DefaultConfig() Config {
	return Config{
		Backend:      "embedded",
		DBPath:       "nobelqa.db",
		EmbeddingDim: 1024,
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "speech_chunks",
		},
		LLM: llm.Config{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
		},
		LaureatesPath:     "data/laureates.json",
		TaxonomyPath:      "data/taxonomy.json",
		AuditDir:          "audit",
		QueryDeadline:     30 * time.Second,
		PromptTokenBudget: 3000,
		Environment:       "development",
	}
}

// FromEnv overlays environment variables onto the defaults. Unset
// variables leave the default in place.
func FromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("VECTOR_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbeddingDim = n
		}
	}
	if v := os.Getenv("EMBEDDER_URL"); v != "" {
		cfg.Embedder.BaseURL = v
	}
	if v := os.Getenv("EMBEDDER_API_KEY"); v != "" {
		cfg.Embedder.APIKey = v
	}
	if v := os.Getenv("VECTOR_STORE_URL"); v != "" {
		cfg.Qdrant.Host = v
	}
	if v := os.Getenv("VECTOR_STORE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Qdrant.Port = n
		}
	}
	if v := os.Getenv("VECTOR_STORE_API_KEY"); v != "" {
		cfg.Qdrant.APIKey = v
		cfg.Qdrant.UseTLS = true
	}
	if v := os.Getenv("VECTOR_COLLECTION"); v != "" {
		cfg.Qdrant.Collection = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LAUREATES_PATH"); v != "" {
		cfg.LaureatesPath = v
	}
	if v := os.Getenv("TAXONOMY_PATH"); v != "" {
		cfg.TaxonomyPath = v
	}
	if v := os.Getenv("AUDIT_LOG_DIR"); v != "" {
		cfg.AuditDir = v
	}
	if v := os.Getenv("QUERY_DEADLINE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueryDeadline = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}

	return cfg
}
