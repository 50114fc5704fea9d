package nobelqa

import "errors"

var (
	// ErrInvalidRequest is returned for malformed or empty queries.
	ErrInvalidRequest = errors.New("nobelqa: invalid request")

	// ErrAmbiguousIntent is returned when no classification signal clears
	// the confidence floor. No downstream calls are made.
	ErrAmbiguousIntent = errors.New("nobelqa: ambiguous intent")

	// ErrNoEvidence is returned when retrieval yields zero chunks above
	// the score threshold. The LLM is not called.
	ErrNoEvidence = errors.New("nobelqa: no supporting passages found")

	// ErrEmbeddingFailure is returned when the embedder service fails
	// after retries.
	ErrEmbeddingFailure = errors.New("nobelqa: embedding failed")

	// ErrStoreUnavailable is returned when the vector store cannot be
	// reached or rejects authentication.
	ErrStoreUnavailable = errors.New("nobelqa: vector store unavailable")

	// ErrLLMFailure is returned when the completion provider fails
	// after retries.
	ErrLLMFailure = errors.New("nobelqa: llm request failed")

	// ErrInvalidFilter is returned when a search filter references a
	// field that is not indexed in the chunk payload.
	ErrInvalidFilter = errors.New("nobelqa: invalid filter field")

	// ErrTimeout is returned when the query deadline expires mid-stage.
	ErrTimeout = errors.New("nobelqa: query deadline exceeded")

	// ErrInternal is returned for unexpected failures.
	ErrInternal = errors.New("nobelqa: internal error")
)
