package chunking

import (
	"errors"
	"testing"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

func TestNew_ValidatesOverlap(t *testing.T) {
	t.Run("overlap equal to size", func(t *testing.T) {
		_, err := New(Config{ChunkSize: 100, ChunkOverlap: 100})
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("overlap above size", func(t *testing.T) {
		_, err := New(Config{ChunkSize: 100, ChunkOverlap: 150})
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("valid", func(t *testing.T) {
		c, err := New(Config{ChunkSize: 100, ChunkOverlap: 20})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c == nil {
			t.Fatal("expected chunker")
		}
	})
}

func TestChunker_StrategySelection(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		contentType string
		want        string
	}{
		{"markdown", "markdown"},
		{"md", "markdown"},
		{"text/markdown", "markdown"},
		{"text/markdown; charset=utf-8", "markdown"},
		{"json", "json"},
		{"application/json", "json"},
		{"text", "text"},
		{"text/plain", "text"},
		{"html", "text"}, // unknown types fall back to text
		{"", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := c.StrategyFor(tt.contentType).Name(); got != tt.want {
				t.Errorf("StrategyFor(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestChunkDocument_MetadataContract(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := &domain.Document{
		ID:          "parent-1",
		Source:      "docs-repo",
		SourceType:  domain.SourceGit,
		URL:         "https://example.com/docs/readme.md",
		Title:       "Readme",
		Content:     "# A\ntext1\n## B\ntext2\n# C\ntext3",
		ContentType: "markdown",
		Metadata: map[string]any{
			"project":       "acme",
			"section_title": "stale value", // chunk field wins on collision
		},
	}

	chunks, err := c.ChunkDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Source != doc.Source || chunk.SourceType != doc.SourceType || chunk.URL != doc.URL {
			t.Errorf("chunk %d lost parent source fields", i)
		}
		if chunk.Metadata["project"] != "acme" {
			t.Errorf("chunk %d lost pre-existing metadata", i)
		}
		if chunk.Metadata[domain.MetaChunkIndex] != i {
			t.Errorf("chunk %d: expected contiguous chunk_index %d, got %v", i, i, chunk.Metadata[domain.MetaChunkIndex])
		}
		if chunk.Metadata[domain.MetaTotalChunks] != 3 {
			t.Errorf("chunk %d: expected total_chunks 3, got %v", i, chunk.Metadata[domain.MetaTotalChunks])
		}
		if chunk.Metadata[domain.MetaParentDocumentID] != "parent-1" {
			t.Errorf("chunk %d: expected parent_document_id parent-1, got %v", i, chunk.Metadata[domain.MetaParentDocumentID])
		}
		if chunk.Metadata[domain.MetaChunkingStrategy] != "markdown" {
			t.Errorf("chunk %d: expected chunking_strategy markdown, got %v", i, chunk.Metadata[domain.MetaChunkingStrategy])
		}
		if chunk.Metadata[domain.MetaSectionTitle] == "stale value" {
			t.Errorf("chunk %d: chunk field should take precedence on collision", i)
		}
		if chunk.ContentHash != domain.HashContent(chunk.Content) {
			t.Errorf("chunk %d: content hash not derived from content", i)
		}
	}

	// The parent document's metadata is not mutated.
	if doc.Metadata["section_title"] != "stale value" {
		t.Error("parent metadata was mutated by chunking")
	}
}

func TestChunkDocument_NilDocument(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.ChunkDocument(nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestChunkDocument_EmptyContent(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := c.ChunkDocument(&domain.Document{ID: "d", ContentType: "text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty content, got %d", len(chunks))
	}
}

func TestTokenCounters(t *testing.T) {
	if got := (WordCounter{}).Count("three little words"); got != 3 {
		t.Errorf("WordCounter: expected 3, got %d", got)
	}
	if got := (RuneCounter{}).Count("héllo"); got != 5 {
		t.Errorf("RuneCounter: expected 5, got %d", got)
	}
}
