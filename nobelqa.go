// Package nobelqa answers questions about Nobel Prize in Literature
// laureates. Factual questions resolve against structured laureate
// metadata when a rule matches; everything else runs through keyword
// expansion, vector retrieval over speech chunks, and a single LLM call.
// Every query leaves one audit entry.
package nobelqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/nobelqa/nobelqa/audit"
	"github.com/nobelqa/nobelqa/embed"
	"github.com/nobelqa/nobelqa/expand"
	"github.com/nobelqa/nobelqa/intent"
	"github.com/nobelqa/nobelqa/llm"
	"github.com/nobelqa/nobelqa/metadata"
	"github.com/nobelqa/nobelqa/prompt"
	"github.com/nobelqa/nobelqa/retrieve"
	"github.com/nobelqa/nobelqa/store"
	"github.com/nobelqa/nobelqa/vector"
)

// Per-stage time bounds inside one query.
const (
	embedTimeout  = 10 * time.Second
	searchTimeout = 10 * time.Second
	llmTimeout    = 25 * time.Second
)

// maxQueryLen bounds accepted query text.
const maxQueryLen = 2000

// snippetLen bounds the source text snippet returned to callers.
const snippetLen = 280

// Canned answers for queries the pipeline declines to send to the LLM.
const (
	ambiguousAnswer = "I'm sorry, I couldn't tell what you're asking. Try a factual question (\"Who won in 1982?\"), a thematic one (\"What do laureates say about exile?\"), or a writing request (\"Write a short passage in the style of Toni Morrison\")."

	noEvidenceAnswer = "I'm sorry, I couldn't find passages in the laureates' lectures and speeches that address this. Rephrasing the question, or dropping a filter, may help."
)

// Engine is the question answering entry point.
type Engine interface {
	// Answer routes one query through the pipeline.
	Answer(ctx context.Context, req Request) (*Response, error)

	// Warmup checks the embedder and vector store so the first query
	// does not pay for discovery of a dead dependency.
	Warmup(ctx context.Context) error

	// Close cleanly shuts down the engine.
	Close() error
}

// Request is one user query with optional retrieval controls.
type Request struct {
	Query string `json:"query"`

	// Filters restricts retrieval to chunks matching every predicate.
	Filters map[string]string `json:"filters,omitempty"`

	// TopK overrides the route profile's candidate count when positive.
	TopK int `json:"top_k,omitempty"`

	// ScoreThreshold overrides the default similarity floor when
	// positive.
	ScoreThreshold float64 `json:"score_threshold,omitempty"`
}

// Response is the compiled answer with its provenance. AnswerType is
// "metadata" when the factual registry resolved the query and "rag"
// when the answer came through retrieval.
type Response struct {
	QueryID          string          `json:"query_id"`
	Answer           string          `json:"answer"`
	Route            string          `json:"route"`
	AnswerType       string          `json:"answer_type,omitempty"`
	Intent           string          `json:"intent,omitempty"`
	Confidence       float64         `json:"confidence,omitempty"`
	Subtype          string          `json:"subtype,omitempty"`
	Trace            []string        `json:"trace,omitempty"`
	MetadataAnswer   *MetadataAnswer `json:"metadata_answer,omitempty"`
	ExpandedTerms    []string        `json:"expanded_terms,omitempty"`
	Sources          []Source        `json:"sources,omitempty"`
	Model            string          `json:"model,omitempty"`
	PromptTokens     int             `json:"prompt_tokens,omitempty"`
	CompletionTokens int             `json:"completion_tokens,omitempty"`
	CostUSD          float64         `json:"cost_usd,omitempty"`
	ElapsedMillis    int64           `json:"elapsed_ms"`

	// Degraded is set when a non-fatal stage failure reduced quality,
	// e.g. expansion fell back to surface keywords.
	Degraded bool `json:"degraded,omitempty"`
}

// MetadataAnswer carries the structured laureate fields behind a
// metadata-resolved answer.
type MetadataAnswer struct {
	Laureate        string `json:"laureate,omitempty"`
	YearAwarded     int    `json:"year_awarded,omitempty"`
	Country         string `json:"country,omitempty"`
	Category        string `json:"category,omitempty"`
	PrizeMotivation string `json:"prize_motivation,omitempty"`
}

// Source is one retrieved chunk backing an answer.
type Source struct {
	ChunkID     string  `json:"chunk_id"`
	Laureate    string  `json:"laureate"`
	YearAwarded int     `json:"year_awarded"`
	SourceType  string  `json:"source_type"`
	Score       float64 `json:"score"`
	TextSnippet string  `json:"text_snippet"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg        Config
	meta       *metadata.Store
	registry   *metadata.Registry
	classifier *intent.Classifier
	embedder   embed.Client
	searcher   vector.Searcher
	expander   *expand.Expander
	plain      *retrieve.Plain
	thematic   *retrieve.Thematic
	builder    *prompt.Builder
	llm        llm.Client
	auditor    *audit.Logger

	// local is set when the embedded backend is in use; it doubles as
	// the query log sink.
	local *store.Store

	closeSearcher func() error
}

// New creates the engine from configuration, loading the laureate
// metadata and keyword taxonomy artifacts.
func New(cfg Config) (Engine, error) {
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 1024
	}
	if cfg.QueryDeadline == 0 {
		cfg.QueryDeadline = 30 * time.Second
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

	e := &engine{cfg: cfg, embedder: embedder}

	switch cfg.Backend {
	case "qdrant":
		qs, err := vector.NewQdrantStore(vector.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("opening qdrant store: %w", err)
		}
		e.searcher = qs
		e.closeSearcher = qs.Close
	case "embedded", "":
		ls, err := store.New(cfg.DBPath, cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("opening embedded store: %w", err)
		}
		e.searcher = ls
		e.local = ls
		e.closeSearcher = ls.Close
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidRequest, cfg.Backend)
	}

	meta, err := metadata.Load(cfg.LaureatesPath)
	if err != nil {
		e.closeSearcher()
		return nil, fmt.Errorf("loading laureate metadata: %w", err)
	}
	e.meta = meta
	e.registry = metadata.NewRegistry()
	e.classifier = intent.NewClassifier(meta.Names())

	tax, err := expand.LoadTaxonomy(context.Background(), cfg.TaxonomyPath, embedder)
	if err != nil {
		e.closeSearcher()
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}
	e.expander = expand.NewExpander(tax, embedder, 0, 0)

	e.plain = retrieve.NewPlain(embedder, e.searcher)
	e.thematic = retrieve.NewThematic(embedder, e.searcher, cfg.SearchFanout)
	e.builder = prompt.NewBuilder(cfg.LLM.Model, cfg.PromptTokenBudget)

	prices := cfg.Prices
	if prices == nil {
		prices = llm.DefaultPrices()
	}
	e.llm = llm.NewOpenAICompat(cfg.LLM, prices)

	auditor, err := audit.NewLogger(cfg.AuditDir)
	if err != nil {
		e.closeSearcher()
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	e.auditor = auditor

	return e, nil
}

// Answer routes one query: validation, intent classification, then the
// metadata, factual-RAG, thematic, or generative path.
func (e *engine) Answer(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()

	entry := audit.NewEntry(req.Query)
	defer func() {
		entry.TotalMillis = time.Since(started).Milliseconds()
		if err := e.auditor.Log(entry); err != nil {
			slog.Error("audit write failed", "query_id", entry.QueryID, "error", err)
		}
	}()

	resp := &Response{QueryID: entry.QueryID}
	finish := func() *Response {
		resp.ElapsedMillis = time.Since(started).Milliseconds()
		return resp
	}

	// Only a truly empty query is a client error. Punctuation-only text
	// falls through to classification and draws the clarification answer.
	if req.Query == "" {
		entry.SetError("invalid_request")
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidRequest)
	}
	if len(req.Query) > maxQueryLen {
		entry.SetError("invalid_request")
		return nil, fmt.Errorf("%w: query exceeds %d characters", ErrInvalidRequest, maxQueryLen)
	}
	if err := vector.ValidateFilters(req.Filters); err != nil {
		entry.SetError("invalid_filter")
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryDeadline)
	defer cancel()

	// Classification.
	stageStart := time.Now()
	cls, err := e.classifier.Classify(req.Query)
	entry.Stage("classify", time.Since(stageStart))
	if err != nil {
		entry.SetIntent("ambiguous", cls.Confidence, cls.MatchedTerms, cls.ScopedEntity, cls.Trace)
		entry.SetError("ambiguous_intent")
		entry.Route = audit.RouteRejected
		entry.SetFinalAnswer(ambiguousAnswer)
		resp.Answer = ambiguousAnswer
		resp.Route = audit.RouteRejected
		resp.Trace = cls.Trace
		return finish(), nil
	}
	entry.SetIntent(cls.Intent.String(), cls.Confidence, cls.MatchedTerms, cls.ScopedEntity, cls.Trace)
	resp.Intent = cls.Intent.String()
	resp.Confidence = cls.Confidence
	resp.Trace = cls.Trace

	filters := e.scopedFilters(req.Filters, cls.ScopedEntity)

	switch cls.Intent {
	case intent.Factual:
		return e.answerFactual(ctx, req, cls, filters, entry, resp, finish)
	case intent.Thematic:
		return e.answerThematic(ctx, req, filters, entry, resp, finish)
	default:
		return e.answerGenerative(ctx, req, filters, entry, resp, finish)
	}
}

// answerFactual tries the metadata rules first and falls back to a
// small RAG pass when none match.
func (e *engine) answerFactual(ctx context.Context, req Request, cls *intent.Classification, filters vector.Filters, entry *audit.Entry, resp *Response, finish func() *Response) (*Response, error) {
	stageStart := time.Now()
	if ans := e.registry.Match(req.Query, e.meta); ans != nil {
		entry.Stage("metadata", time.Since(stageStart))
		entry.Route = audit.RouteMetadata
		entry.SetFinalAnswer(ans.Answer)
		resp.Route = audit.RouteMetadata
		resp.AnswerType = ans.AnswerType
		resp.Answer = ans.Answer
		resp.MetadataAnswer = &MetadataAnswer{
			Laureate:        ans.Laureate,
			YearAwarded:     ans.YearAwarded,
			Country:         ans.Country,
			Category:        ans.Category,
			PrizeMotivation: ans.PrizeMotivation,
		}
		e.logQuery(ctx, entry, resp)
		slog.Info("query answered from metadata",
			"query_id", entry.QueryID, "rule", ans.RuleName)
		return finish(), nil
	}
	entry.Stage("metadata", time.Since(stageStart))

	params := e.sizing(retrieve.FactualFallbackProfile(), req, filters)
	stageStart = time.Now()
	retrieveCtx, cancel := context.WithTimeout(ctx, embedTimeout+searchTimeout)
	chunks, err := e.plain.Retrieve(retrieveCtx, req.Query, params)
	cancel()
	entry.Stage("retrieve", time.Since(stageStart))
	if err != nil {
		return nil, e.fail(entry, "retrieval", err)
	}
	entry.SetRetrieval(chunkIDs(chunks), chunkScores(chunks), params.ScoreThreshold)

	return e.complete(ctx, req.Query, cls.Intent, intent.SubtypeNone, audit.RouteFactual, chunks, entry, resp, finish)
}

// answerThematic runs subtype detection, keyword expansion, and the
// fan-out retriever before the LLM call.
func (e *engine) answerThematic(ctx context.Context, req Request, filters vector.Filters, entry *audit.Entry, resp *Response, finish func() *Response) (*Response, error) {
	sub := intent.DetectSubtype(req.Query)
	entry.Subtype = sub.Subtype.String()
	resp.Subtype = sub.Subtype.String()

	stageStart := time.Now()
	expandCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	exp, err := e.expander.Expand(expandCtx, req.Query)
	cancel()
	entry.Stage("expand", time.Since(stageStart))
	if err != nil {
		return nil, e.fail(entry, "expansion", err)
	}
	entry.SetExpansion(exp.Terms, exp.Similarities)
	resp.ExpandedTerms = exp.Terms
	resp.Degraded = exp.Degraded

	params := e.sizing(retrieve.ProfileFor(sub.Subtype), req, filters)
	stageStart = time.Now()
	retrieveCtx, cancel := context.WithTimeout(ctx, embedTimeout+searchTimeout)
	chunks, err := e.thematic.Retrieve(retrieveCtx, req.Query, exp.Terms, params)
	cancel()
	entry.Stage("retrieve", time.Since(stageStart))
	if err != nil {
		return nil, e.fail(entry, "retrieval", err)
	}
	entry.SetRetrieval(chunkIDs(chunks), chunkScores(chunks), params.ScoreThreshold)

	return e.complete(ctx, req.Query, intent.Thematic, sub.Subtype, audit.RouteThematic, chunks, entry, resp, finish)
}

// answerGenerative retrieves stylistic evidence with the plain
// retriever and hands it to the generative template.
func (e *engine) answerGenerative(ctx context.Context, req Request, filters vector.Filters, entry *audit.Entry, resp *Response, finish func() *Response) (*Response, error) {
	params := e.sizing(retrieve.GenerativeProfile(), req, filters)
	stageStart := time.Now()
	retrieveCtx, cancel := context.WithTimeout(ctx, embedTimeout+searchTimeout)
	chunks, err := e.plain.Retrieve(retrieveCtx, req.Query, params)
	cancel()
	entry.Stage("retrieve", time.Since(stageStart))
	if err != nil {
		return nil, e.fail(entry, "retrieval", err)
	}
	entry.SetRetrieval(chunkIDs(chunks), chunkScores(chunks), params.ScoreThreshold)

	return e.complete(ctx, req.Query, intent.Generative, intent.SubtypeNone, audit.RouteGenerative, chunks, entry, resp, finish)
}

// complete assembles the prompt, invokes the LLM, and compiles the
// response. Zero chunks short-circuits to the no-evidence answer.
func (e *engine) complete(ctx context.Context, query string, it intent.Intent, sub intent.Subtype, route string, chunks []vector.ScoredChunk, entry *audit.Entry, resp *Response, finish func() *Response) (*Response, error) {
	entry.Route = route
	resp.Route = route
	resp.AnswerType = "rag"

	if len(chunks) == 0 {
		entry.SetError("no_evidence")
		entry.SetFinalAnswer(noEvidenceAnswer)
		resp.Answer = noEvidenceAnswer
		slog.Info("query found no evidence", "query_id", entry.QueryID, "route", route)
		return finish(), nil
	}

	stageStart := time.Now()
	built, err := e.builder.Build(it, sub, query, chunks)
	entry.Stage("prompt", time.Since(stageStart))
	if err != nil {
		return nil, e.fail(entry, "prompt", err)
	}
	entry.SetPrompt(built.TemplateName, built.ContextCharLength, built.TokenCount)

	stageStart = time.Now()
	llmCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	completion, err := e.llm.Complete(llmCtx, built.SystemPrompt, built.RenderedPrompt)
	cancel()
	entry.Stage("llm", time.Since(stageStart))
	if err != nil {
		return nil, e.fail(entry, "llm", err)
	}
	entry.SetLLM(completion.Model, completion.PromptTokens, completion.CompletionTokens, completion.CostUSD)
	entry.SetFinalAnswer(completion.Text)

	resp.Answer = completion.Text
	resp.Model = completion.Model
	resp.PromptTokens = completion.PromptTokens
	resp.CompletionTokens = completion.CompletionTokens
	resp.CostUSD = completion.CostUSD
	resp.Sources = sources(chunks[:built.ChunksUsed])

	e.logQuery(ctx, entry, resp)
	slog.Info("query answered",
		"query_id", entry.QueryID, "route", route, "template", built.TemplateName,
		"chunks", built.ChunksUsed, "cost_usd", completion.CostUSD)
	return finish(), nil
}

// Warmup checks the embedder and the vector store.
func (e *engine) Warmup(ctx context.Context) error {
	status, err := e.embedder.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}
	if !status.Healthy() {
		return fmt.Errorf("%w: embedder status %q", ErrEmbeddingFailure, status.Status)
	}
	if err := e.searcher.Health(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close shuts down the engine.
func (e *engine) Close() error {
	err := e.auditor.Close()
	if cerr := e.closeSearcher(); err == nil {
		err = cerr
	}
	return err
}

// sizing applies caller overrides on top of a route profile.
func (e *engine) sizing(p retrieve.Profile, req Request, filters vector.Filters) retrieve.Params {
	params := p.Params(filters)
	if req.TopK > 0 {
		params.TopK = req.TopK
		if params.MaxReturn > req.TopK {
			params.MaxReturn = req.TopK
		}
		if params.MinReturn > req.TopK {
			params.MinReturn = req.TopK
		}
	}
	if req.ScoreThreshold > 0 {
		params.ScoreThreshold = req.ScoreThreshold
	}
	return params
}

// scopedFilters adds a laureate filter when the classifier spotted a
// laureate name and the caller did not already scope by laureate.
func (e *engine) scopedFilters(base map[string]string, scopedEntity string) vector.Filters {
	filters := make(vector.Filters, len(base)+1)
	for k, v := range base {
		filters[k] = v
	}
	if scopedEntity != "" {
		if _, set := filters["laureate"]; !set {
			filters["laureate"] = scopedEntity
		}
	}
	return filters
}

// fail classifies a stage error into the package sentinels and records
// it on the audit entry.
func (e *engine) fail(entry *audit.Entry, stage string, err error) error {
	var sentinel error
	var errType string
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		sentinel, errType = ErrTimeout, "timeout"
	case errors.Is(err, vector.ErrUnsupportedFilterField):
		sentinel, errType = ErrInvalidFilter, "invalid_filter"
	case stage == "expansion", stage == "embedding":
		sentinel, errType = ErrEmbeddingFailure, "embedding_failure"
	case stage == "retrieval":
		sentinel, errType = ErrStoreUnavailable, "store_unavailable"
	case stage == "llm":
		sentinel, errType = ErrLLMFailure, "llm_failure"
	default:
		sentinel, errType = ErrInternal, "internal"
	}
	entry.SetError(errType)
	slog.Error("query stage failed",
		"query_id", entry.QueryID, "stage", stage, "error", err)
	return fmt.Errorf("%w: %s: %v", sentinel, stage, err)
}

// logQuery mirrors the answer into the embedded store's query log when
// that backend is active. Failures are logged, never fatal.
func (e *engine) logQuery(ctx context.Context, entry *audit.Entry, resp *Response) {
	if e.local == nil {
		return
	}
	err := e.local.LogQuery(ctx, store.QueryLog{
		QueryID:          entry.QueryID,
		Query:            entry.UserQuery,
		Intent:           entry.Intent,
		Route:            resp.Route,
		Answer:           resp.Answer,
		ModelUsed:        resp.Model,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		CostUSD:          resp.CostUSD,
	})
	if err != nil {
		slog.Warn("query log write failed", "query_id", entry.QueryID, "error", err)
	}
}

func chunkIDs(chunks []vector.ScoredChunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
	}
	return ids
}

func chunkScores(chunks []vector.ScoredChunk) []float64 {
	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		scores[i] = c.Score
	}
	return scores
}

func sources(chunks []vector.ScoredChunk) []Source {
	out := make([]Source, len(chunks))
	for i, c := range chunks {
		snippet := c.Text
		if len(snippet) > snippetLen {
			// Back off to a rune boundary so multi-byte text stays valid.
			cut := snippetLen
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			snippet = snippet[:cut] + "…"
		}
		out[i] = Source{
			ChunkID:     c.ChunkID,
			Laureate:    c.Laureate,
			YearAwarded: c.YearAwarded,
			SourceType:  c.SourceType,
			Score:       c.Score,
			TextSnippet: snippet,
		}
	}
	return out
}
