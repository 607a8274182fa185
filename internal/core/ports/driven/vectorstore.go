package driven

import (
	"context"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// Point is a stored vector with its payload.
type Point struct {
	// ID is the point identifier (UUID).
	ID string

	// Vector is the dense embedding.
	Vector []float32

	// Payload holds the chunk content and metadata.
	Payload map[string]any
}

// ScoredPoint is a point returned from similarity search.
type ScoredPoint struct {
	Point

	// Score is the store's similarity score for the query.
	Score float64
}

// VectorStore provides approximate nearest-neighbour search with payload
// filtering. The store guarantees atomicity of individual upserts; the core
// implements no locking over store contents.
type VectorStore interface {
	// Search runs an approximate nearest-neighbour query. Matches scoring
	// below scoreThreshold are rejected by the store.
	Search(ctx context.Context, vector []float32, limit int, filter *domain.Filter, scoreThreshold float64) ([]ScoredPoint, error)

	// Scroll pages through points matching the filter. An empty cursor
	// starts from the beginning; the returned cursor is empty when
	// exhausted.
	Scroll(ctx context.Context, filter *domain.Filter, limit int, cursor string) ([]Point, string, error)

	// Retrieve fetches points by ID. Missing IDs are silently omitted.
	Retrieve(ctx context.Context, ids []string) ([]Point, error)

	// Upsert writes points. With wait set, the call returns only after the
	// store has applied the write.
	Upsert(ctx context.Context, points []Point, wait bool) error

	// DeleteByFilter removes all points matching the filter.
	DeleteByFilter(ctx context.Context, filter *domain.Filter) error

	// Close releases resources.
	Close() error
}
