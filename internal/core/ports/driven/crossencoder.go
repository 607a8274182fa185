package driven

import "context"

// CrossEncoder scores (query, text) pairs with a relevance model.
// Loading is lazy and may fail; a failed load permanently disables reranking
// for the owning Reranker instance.
type CrossEncoder interface {
	// Load prepares the underlying model. Called once before first use.
	Load(ctx context.Context) error

	// Score returns one relevance score per text for the given query.
	// The returned slice has the same length and order as texts.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)

	// Close releases resources.
	Close() error
}
