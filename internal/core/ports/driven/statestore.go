package driven

import (
	"context"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// DocumentStateStore persists the last-known state of each logical document.
// Records are keyed by (source_type, source_name, document_id). The store
// supports point lookups, range scans by source scope, and upsert-by-key.
type DocumentStateStore interface {
	// Get retrieves the record for a key. Returns domain.ErrNotFound if the
	// key has never been seen.
	Get(ctx context.Context, key domain.StateKey) (*domain.DocumentStateRecord, error)

	// List returns records scoped to (sourceType, sourceName). Tombstoned
	// records are excluded unless includeDeleted is set.
	List(ctx context.Context, sourceType domain.SourceType, sourceName string, includeDeleted bool) ([]domain.DocumentStateRecord, error)

	// Upsert stores or updates a record by key. Upserting a tombstoned key
	// flips the tombstone back to live.
	Upsert(ctx context.Context, record domain.DocumentStateRecord) error

	// MarkDeleted tombstones a record. The record itself is never removed so
	// re-deletion stays idempotent.
	MarkDeleted(ctx context.Context, key domain.StateKey) error

	// Close releases resources.
	Close() error
}
