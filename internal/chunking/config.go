package chunking

import (
	"fmt"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// Default configuration values.
const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
	DefaultMaxArrayItems = 50
	DefaultLargeFile     = 1 << 20 // bytes
)

// Config holds chunking configuration shared by all strategies.
type Config struct {
	// ChunkSize is the maximum tokens per chunk.
	ChunkSize int

	// ChunkOverlap is the token overlap between adjacent fallback chunks.
	// Must be strictly less than ChunkSize.
	ChunkOverlap int

	// MaxArrayItems caps items per chunk for large JSON arrays.
	MaxArrayItems int

	// LargeFileBytes is the size above which JSON content degrades to the
	// simple splitter instead of being parsed.
	LargeFileBytes int

	// Counter measures chunk size. Defaults to WordCounter.
	Counter TokenCounter
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.MaxArrayItems == 0 {
		c.MaxArrayItems = DefaultMaxArrayItems
	}
	if c.LargeFileBytes == 0 {
		c.LargeFileBytes = DefaultLargeFile
	}
	if c.Counter == nil {
		c.Counter = WordCounter{}
	}
	return c
}

// validate rejects configurations that must fail fast at construction.
func (c Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d",
			domain.ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}
