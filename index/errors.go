package index

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRepositoryRequired is returned when a vector repository is not provided.
	ErrRepositoryRequired = errors.New("vector repository required")

	// ErrInvalidDocument indicates a document cannot be indexed.
	ErrInvalidDocument = errors.New("invalid index document")

	// ErrEmptyQuery is returned when searching with a blank query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmbeddingMismatch indicates the embedder returned the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
