package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SourceType identifies the kind of system a document originated from.
type SourceType string

// Supported source types.
const (
	SourceGit        SourceType = "git"
	SourceConfluence SourceType = "confluence"
	SourceJira       SourceType = "jira"
	SourceSharePoint SourceType = "sharepoint"
	SourceLocalFile  SourceType = "localfile"
	SourcePublicDocs SourceType = "publicdocs"
)

// Metadata keys set on chunk documents by the chunker.
const (
	MetaChunkIndex       = "chunk_index"
	MetaTotalChunks      = "total_chunks"
	MetaParentDocumentID = "parent_document_id"
	MetaChunkingStrategy = "chunking_strategy"
	MetaChunkingMethod   = "chunking_method"
	MetaSectionTitle     = "section_title"
	MetaSectionLevel     = "section_level"
	MetaHierarchy        = "hierarchy"
	MetaIsSectionStart   = "is_section_start"
)

// Document is a unit of ingestible content. Connectors produce parent
// documents; the chunker produces child documents that inherit the parent's
// metadata plus chunk-specific fields.
type Document struct {
	// ID is the stable identifier assigned by the source or connector.
	ID string

	// Source is the origin identifier (repo URL, space key, directory, ...).
	Source string

	// SourceType is the kind of system the document came from.
	SourceType SourceType

	// URL is the human-navigable locator.
	URL string

	// Title is the human-readable title.
	Title string

	// Content is the full text content.
	Content string

	// ContentType describes the content format (markdown, json, html, text).
	ContentType string

	// ContentHash is a deterministic digest of Content used for change
	// detection. Same bytes always produce the same hash.
	ContentHash string

	// Metadata contains arbitrary source- and chunk-specific key-value pairs.
	Metadata map[string]any

	// IsDeleted marks a deletion marker reconstructed by change detection.
	IsDeleted bool

	// CreatedAt is when the document was created at the source.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated at the source.
	UpdatedAt time.Time
}

// HashContent computes the deterministic content digest used for change
// detection.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// EnsureHash populates ContentHash from Content if it is not already set.
func (d *Document) EnsureHash() {
	if d.ContentHash == "" {
		d.ContentHash = HashContent(d.Content)
	}
}

// Key returns the composite state key for this document.
func (d *Document) Key(sourceName string) StateKey {
	return StateKey{
		SourceType: d.SourceType,
		SourceName: sourceName,
		DocumentID: d.ID,
	}
}

// CopyMetadata returns a shallow copy of the document's metadata map.
// A nil map copies to an empty map so callers can write to the result.
func (d *Document) CopyMetadata() map[string]any {
	out := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}

// NewDeletionMarker reconstructs a minimal Document for a key that vanished
// from the source listing. It carries no content; downstream stages use it to
// tombstone the stored record and remove indexed chunks.
func NewDeletionMarker(key StateKey) Document {
	return Document{
		ID:         key.DocumentID,
		Source:     key.SourceName,
		SourceType: key.SourceType,
		IsDeleted:  true,
	}
}
