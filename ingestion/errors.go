package ingestion

import "errors"

var (
	// ErrSessionRepositoryRequired is returned when a session repository is not provided.
	ErrSessionRepositoryRequired = errors.New("session repository required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrSessionNotFound is returned when saving into a session that does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmbeddingFailed is returned when the embedder fails or returns a
	// result that does not line up with the input.
	ErrEmbeddingFailed = errors.New("embedding failed")
)
