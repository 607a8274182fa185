package chunking

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// Chunker converts one parent Document into an ordered list of chunk
// Documents. The content-type to strategy mapping is resolved once at
// construction time, not per call.
type Chunker struct {
	cfg        Config
	strategies map[string]Strategy
	fallback   Strategy
}

// New creates a chunker. Configuration is validated here; an overlap greater
// than or equal to the chunk size is a construction-time error.
func New(cfg Config) (*Chunker, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	text := NewTextStrategy(cfg)
	md := NewMarkdownStrategy(cfg)
	js := NewJSONStrategy(cfg)

	return &Chunker{
		cfg:      cfg,
		fallback: text,
		strategies: map[string]Strategy{
			"markdown": md,
			"md":       md,
			"json":     js,
			"text":     text,
			"txt":      text,
			"plain":    text,
		},
	}, nil
}

// StrategyFor resolves the strategy for a content type. Accepts both bare
// names ("markdown") and MIME forms ("text/markdown; charset=utf-8").
// Unknown types fall back to the text strategy.
func (c *Chunker) StrategyFor(contentType string) Strategy {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if i := strings.Index(ct, "/"); i >= 0 {
		ct = ct[i+1:]
	}
	if s, ok := c.strategies[ct]; ok {
		return s
	}
	return c.fallback
}

// ChunkDocument splits the document and applies the common chunk contract:
// every chunk preserves the parent's source, source_type, url and metadata
// (chunk fields win on collision), chunk_index is 0-based and contiguous, and
// total_chunks is consistent across all chunks of the parent.
func (c *Chunker) ChunkDocument(doc *domain.Document) ([]domain.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	strategy := c.StrategyFor(doc.ContentType)
	sections, err := strategy.Split(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", strategy.Name(), err)
	}

	total := len(sections)
	chunks := make([]domain.Document, 0, total)

	for i, sec := range sections {
		meta := doc.CopyMetadata()
		meta[domain.MetaChunkIndex] = i
		meta[domain.MetaTotalChunks] = total
		meta[domain.MetaParentDocumentID] = doc.ID
		meta[domain.MetaChunkingStrategy] = strategy.Name()
		meta[domain.MetaChunkingMethod] = sec.Method
		meta[domain.MetaSectionTitle] = sec.Title
		meta[domain.MetaSectionLevel] = sec.Level
		meta[domain.MetaIsSectionStart] = sec.IsSectionStart
		if len(sec.Hierarchy) > 0 {
			meta[domain.MetaHierarchy] = append([]string(nil), sec.Hierarchy...)
		}

		title := sec.Title
		if title == "" {
			title = doc.Title
		}

		chunks = append(chunks, domain.Document{
			ID:          uuid.New().String(),
			Source:      doc.Source,
			SourceType:  doc.SourceType,
			URL:         doc.URL,
			Title:       title,
			Content:     sec.Content,
			ContentType: doc.ContentType,
			ContentHash: domain.HashContent(sec.Content),
			Metadata:    meta,
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
		})
	}

	return chunks, nil
}
