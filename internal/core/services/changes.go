package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/logger"
)

// ChangeDetector classifies a batch of currently-fetched documents against
// previously persisted state into new, updated and deleted partitions.
//
// Detection never mutates the state store; callers persist state transitions
// only after downstream processing succeeds, preserving at-least-once
// reprocessing on partial failure.
type ChangeDetector struct {
	states driven.DocumentStateStore
}

// NewChangeDetector creates a change detector backed by the given state
// store.
func NewChangeDetector(states driven.DocumentStateStore) *ChangeDetector {
	return &ChangeDetector{states: states}
}

// Detect computes the change set for the current batch.
//
// The content hash is the sole truth signal: byte-identical content under a
// different source timestamp is never classified as updated. Unchanged
// documents are skipped entirely without further work.
func (d *ChangeDetector) Detect(
	ctx context.Context,
	sourceType domain.SourceType,
	sourceName string,
	current []domain.Document,
) (*domain.ChangeSet, error) {
	records, err := d.states.List(ctx, sourceType, sourceName, false)
	if err != nil {
		return nil, fmt.Errorf("list state records: %w", err)
	}

	prior := make(map[string]domain.DocumentStateRecord, len(records))
	for _, rec := range records {
		prior[rec.DocumentID] = rec
	}

	changes := &domain.ChangeSet{}
	seen := make(map[string]bool, len(current))

	for _, doc := range current {
		key := doc.ID
		if key == "" {
			// URL-keyed sources (public docs) have no server-assigned ID.
			key = doc.URL
		}
		if key == "" {
			return nil, fmt.Errorf("%w: document without id or url from %s/%s",
				domain.ErrInvalidInput, sourceType, sourceName)
		}
		if seen[key] {
			// Silent misclassification is worse than stopping ingestion for
			// this source.
			return nil, fmt.Errorf("%w: %q appears twice in batch for %s/%s",
				domain.ErrAmbiguousKey, key, sourceType, sourceName)
		}
		seen[key] = true

		hash := doc.ContentHash
		if hash == "" {
			hash = domain.HashContent(doc.Content)
		}

		rec, exists := prior[key]
		switch {
		case !exists:
			changes.New = append(changes.New, doc)
		case rec.ContentHash != hash:
			changes.Updated = append(changes.Updated, doc)
		default:
			// Unchanged: short-circuit, the common case.
		}
	}

	for key, rec := range prior {
		if !seen[key] {
			changes.Deleted = append(changes.Deleted, domain.NewDeletionMarker(rec.Key()))
		}
	}
	// Map iteration order is random; keep deletion order deterministic.
	sort.Slice(changes.Deleted, func(i, j int) bool {
		return changes.Deleted[i].ID < changes.Deleted[j].ID
	})

	logger.Debug("Change detection for %s/%s: %d new, %d updated, %d deleted, %d unchanged",
		sourceType, sourceName,
		len(changes.New), len(changes.Updated), len(changes.Deleted),
		len(current)-len(changes.New)-len(changes.Updated))

	return changes, nil
}
