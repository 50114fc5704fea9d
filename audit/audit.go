// Package audit records one structured JSONL entry per query: the
// routing decisions, intermediate artifacts, cost, and timings that let
// an operator reconstruct why a query was answered the way it was.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Routes taken through the engine.
const (
	RouteMetadata   = "metadata"
	RouteThematic   = "thematic_rag"
	RouteFactual    = "factual_rag"
	RouteGenerative = "generative_rag"
	RouteRejected   = "rejected"
)

// Entry is one query's audit record. Build it through the With/Set
// methods; the error type and final answer are write-once.
type Entry struct {
	QueryID   string `json:"query_id"`
	Timestamp string `json:"timestamp"`
	UserQuery string `json:"user_query"`

	Intent           string  `json:"intent,omitempty"`
	IntentConfidence float64 `json:"intent_confidence,omitempty"`
	Subtype          string  `json:"subtype,omitempty"`
	Route            string  `json:"route,omitempty"`

	MatchedTerms []string `json:"matched_terms,omitempty"`
	ScopedEntity string   `json:"scoped_entity,omitempty"`
	Trace        []string `json:"trace,omitempty"`

	ExpandedTerms    []string           `json:"expanded_terms,omitempty"`
	TermSimilarities map[string]float64 `json:"term_similarities,omitempty"`

	ChunkIDs       []string  `json:"chunk_ids,omitempty"`
	ChunkScores    []float64 `json:"chunk_scores,omitempty"`
	ChunksReturned int       `json:"chunks_returned,omitempty"`
	ScoreThreshold float64   `json:"score_threshold,omitempty"`

	TemplateName      string `json:"template_name,omitempty"`
	ContextCharLength int    `json:"context_char_length,omitempty"`
	PromptTokenCount  int    `json:"prompt_token_count,omitempty"`

	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`

	FinalAnswer string `json:"final_answer,omitempty"`
	ErrorType   string `json:"error_type,omitempty"`

	StageMillis map[string]int64 `json:"stage_ms,omitempty"`
	TotalMillis int64            `json:"total_ms"`
}

// NewEntry starts a record with a fresh query id and a UTC timestamp.
func NewEntry(userQuery string) *Entry {
	return &Entry{
		QueryID:     uuid.New().String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		UserQuery:   userQuery,
		StageMillis: make(map[string]int64),
	}
}

// SetIntent records the classification outcome with the matched cues
// and the reason trace behind it.
func (e *Entry) SetIntent(intent string, confidence float64, matched []string, scoped string, trace []string) {
	e.Intent = intent
	e.IntentConfidence = confidence
	e.MatchedTerms = matched
	e.ScopedEntity = scoped
	e.Trace = trace
}

// SetExpansion records the expanded term set.
func (e *Entry) SetExpansion(terms []string, similarities map[string]float64) {
	e.ExpandedTerms = terms
	e.TermSimilarities = similarities
}

// SetRetrieval records the chunk set that survived retrieval.
func (e *Entry) SetRetrieval(ids []string, scores []float64, threshold float64) {
	e.ChunkIDs = ids
	e.ChunkScores = scores
	e.ChunksReturned = len(ids)
	e.ScoreThreshold = threshold
}

// SetPrompt records the assembled prompt's shape.
func (e *Entry) SetPrompt(template string, contextChars, tokenCount int) {
	e.TemplateName = template
	e.ContextCharLength = contextChars
	e.PromptTokenCount = tokenCount
}

// SetLLM records the model invocation.
func (e *Entry) SetLLM(model string, promptTokens, completionTokens int, costUSD float64) {
	e.Model = model
	e.PromptTokens = promptTokens
	e.CompletionTokens = completionTokens
	e.CostUSD = costUSD
}

// SetFinalAnswer records the answer once; later calls are ignored so an
// error path cannot overwrite a committed answer.
func (e *Entry) SetFinalAnswer(answer string) {
	if e.FinalAnswer == "" {
		e.FinalAnswer = answer
	}
}

// SetError records the first error classification; later calls are
// ignored so the root cause survives cleanup failures.
func (e *Entry) SetError(errorType string) {
	if e.ErrorType == "" {
		e.ErrorType = errorType
	}
}

// Stage records one stage's elapsed time.
func (e *Entry) Stage(name string, elapsed time.Duration) {
	e.StageMillis[name] = elapsed.Milliseconds()
}
