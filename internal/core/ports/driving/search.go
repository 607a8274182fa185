package driving

import (
	"context"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// SearchService serves ranked results for text queries.
type SearchService interface {
	// Search runs hybrid retrieval for the query. Field queries embedded in
	// the query string are extracted into structured filters.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
