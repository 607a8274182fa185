package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates configuration that must fail fast at
	// construction time rather than silently default.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAmbiguousKey indicates a document key collision within one batch.
	// Change detection fails loudly instead of misclassifying.
	ErrAmbiguousKey = errors.New("ambiguous document key")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbeddingAuth indicates the embedding provider rejected the
	// credentials. Never masked as an empty vector.
	ErrEmbeddingAuth = errors.New("embedding authentication failed")

	// ErrEmbeddingQuota indicates the embedding provider rate limit or quota
	// was exhausted.
	ErrEmbeddingQuota = errors.New("embedding quota exhausted")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrLockTimeout indicates bounded lock acquisition gave up after its
	// retry budget instead of deadlocking.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrIngestInProgress indicates an ingestion run is already active for
	// the source.
	ErrIngestInProgress = errors.New("ingestion already in progress")
)

// ConversionError is returned by file converters when a binary source format
// cannot be converted to markdown. Connectors catch it and fall back to a
// placeholder document.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
