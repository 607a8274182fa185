package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
)

// StateStore is an in-memory DocumentStateStore.
type StateStore struct {
	mu      sync.RWMutex
	records map[domain.StateKey]domain.DocumentStateRecord
}

var _ driven.DocumentStateStore = (*StateStore)(nil)

// NewStateStore creates an empty in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{records: make(map[domain.StateKey]domain.DocumentStateRecord)}
}

// Get retrieves the record for a key.
func (s *StateStore) Get(_ context.Context, key domain.StateKey) (*domain.DocumentStateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// List returns records scoped to (sourceType, sourceName) in document ID
// order.
func (s *StateStore) List(
	_ context.Context,
	sourceType domain.SourceType,
	sourceName string,
	includeDeleted bool,
) ([]domain.DocumentStateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []domain.DocumentStateRecord
	for key, rec := range s.records {
		if key.SourceType != sourceType || key.SourceName != sourceName {
			continue
		}
		if rec.IsDeleted && !includeDeleted {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].DocumentID < records[j].DocumentID
	})
	return records, nil
}

// Upsert stores or updates a record by key.
func (s *StateStore) Upsert(_ context.Context, record domain.DocumentStateRecord) error {
	if record.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.records[record.Key()]; ok {
		record.CreatedAt = existing.CreatedAt
	} else if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.IsDeleted = false

	s.records[record.Key()] = record
	return nil
}

// MarkDeleted tombstones a record.
func (s *StateStore) MarkDeleted(_ context.Context, key domain.StateKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.IsDeleted = true
	rec.UpdatedAt = time.Now().UTC()
	s.records[key] = rec
	return nil
}

// Close is a no-op for the in-memory store.
func (s *StateStore) Close() error {
	return nil
}
