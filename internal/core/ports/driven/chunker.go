package driven

import "github.com/custodia-labs/corpora/internal/core/domain"

// DocumentChunker splits one parent document into ordered chunk documents.
// Chunking is CPU-bound and pure; no context is taken.
type DocumentChunker interface {
	// ChunkDocument returns the chunk documents for a parent. Every chunk
	// preserves the parent's source, source_type, url and metadata, with
	// chunk-specific fields taking precedence on key collision.
	ChunkDocument(doc *domain.Document) ([]domain.Document, error)
}
