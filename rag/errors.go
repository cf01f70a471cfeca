package rag

import "errors"

var (
	// ErrEngineRequired is returned when a retrieval engine is not provided.
	ErrEngineRequired = errors.New("retrieval engine required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrEmptyQuery is returned when the question is empty or whitespace only.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrGenerationFailed wraps failures reported by the generator.
	ErrGenerationFailed = errors.New("answer generation failed")
)
