package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrRetriesExhausted is returned when every retry attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than texts, or an empty vector.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
