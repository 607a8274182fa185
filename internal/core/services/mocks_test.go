package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
)

// mockStateStore is an in-memory DocumentStateStore for service tests.
type mockStateStore struct {
	mu      sync.Mutex
	records map[domain.StateKey]domain.DocumentStateRecord

	listErr   error
	upsertErr error
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{records: make(map[domain.StateKey]domain.DocumentStateRecord)}
}

func (s *mockStateStore) Get(_ context.Context, key domain.StateKey) (*domain.DocumentStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *mockStateStore) List(
	_ context.Context, sourceType domain.SourceType, sourceName string, includeDeleted bool,
) ([]domain.DocumentStateRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.DocumentStateRecord
	for key, rec := range s.records {
		if key.SourceType != sourceType || key.SourceName != sourceName {
			continue
		}
		if rec.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func (s *mockStateStore) Upsert(_ context.Context, record domain.DocumentStateRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record.IsDeleted = false
	s.records[record.Key()] = record
	return nil
}

func (s *mockStateStore) MarkDeleted(_ context.Context, key domain.StateKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.IsDeleted = true
	s.records[key] = rec
	return nil
}

func (s *mockStateStore) Close() error { return nil }

// mockVectorStore is an in-memory VectorStore. Search returns canned scored
// points; Scroll pages over stored points in ID order.
type mockVectorStore struct {
	mu     sync.Mutex
	points map[string]driven.Point

	searchHits    []driven.ScoredPoint
	searchErr     error
	scrollErr     error
	upsertErr     error
	deleteFilters []*domain.Filter
	upserted      [][]driven.Point
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{points: make(map[string]driven.Point)}
}

func (s *mockVectorStore) add(p driven.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[p.ID] = p
}

func (s *mockVectorStore) Search(
	_ context.Context, _ []float32, limit int, _ *domain.Filter, _ float64,
) ([]driven.ScoredPoint, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	hits := s.searchHits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *mockVectorStore) Scroll(
	_ context.Context, filter *domain.Filter, limit int, cursor string,
) ([]driven.Point, string, error) {
	if s.scrollErr != nil {
		return nil, "", s.scrollErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.points))
	for id := range s.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []driven.Point
	for _, id := range ids {
		if id <= cursor && cursor != "" {
			continue
		}
		p := s.points[id]
		if matchesMockFilter(p.Payload, filter) {
			out = append(out, p)
		}
		if len(out) == limit {
			return out, id, nil
		}
	}
	return out, "", nil
}

func (s *mockVectorStore) Retrieve(_ context.Context, ids []string) ([]driven.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []driven.Point
	for _, id := range ids {
		if p, ok := s.points[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *mockVectorStore) Upsert(_ context.Context, points []driven.Point, _ bool) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted = append(s.upserted, points)
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *mockVectorStore) DeleteByFilter(_ context.Context, filter *domain.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteFilters = append(s.deleteFilters, filter)
	for id, p := range s.points {
		if matchesMockFilter(p.Payload, filter) {
			delete(s.points, id)
		}
	}
	return nil
}

func (s *mockVectorStore) Close() error { return nil }

func matchesMockFilter(payload map[string]any, filter *domain.Filter) bool {
	if filter.Empty() {
		return true
	}
	for _, cond := range filter.Must {
		value := lookupMockPayload(payload, cond.Key)
		switch match := cond.Match.(type) {
		case string:
			if value != match {
				return false
			}
		case int64:
			n, ok := value.(int)
			if !ok || int64(n) != match {
				return false
			}
		case []string:
			s, _ := value.(string)
			found := false
			for _, candidate := range match {
				if s == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func lookupMockPayload(payload map[string]any, key string) any {
	if nested, ok := strings.CutPrefix(key, "metadata."); ok {
		meta, _ := payload["metadata"].(map[string]any)
		return meta[nested]
	}
	return payload[key]
}

// mockEmbedder returns fixed-size vectors and counts calls.
type mockEmbedder struct {
	mu         sync.Mutex
	embedErr   error
	batchErr   error
	embeds     int
	batchSizes []int
}

func (e *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	e.mu.Lock()
	e.embeds++
	e.mu.Unlock()
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	e.mu.Lock()
	e.batchSizes = append(e.batchSizes, len(texts))
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (e *mockEmbedder) Dimensions() int              { return 3 }
func (e *mockEmbedder) ModelName() string            { return "mock-embed" }
func (e *mockEmbedder) Ping(_ context.Context) error { return nil }
func (e *mockEmbedder) Close() error                 { return nil }

// mockCrossEncoder scores texts by length and records invocations.
type mockCrossEncoder struct {
	mu       sync.Mutex
	loadErr  error
	scoreErr error
	scores   []float64
	loads    int
	calls    int
}

func (e *mockCrossEncoder) Load(_ context.Context) error {
	e.mu.Lock()
	e.loads++
	e.mu.Unlock()
	return e.loadErr
}

func (e *mockCrossEncoder) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.scoreErr != nil {
		return nil, e.scoreErr
	}
	if e.scores != nil {
		return e.scores, nil
	}
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = float64(len(t))
	}
	return out, nil
}

func (e *mockCrossEncoder) Close() error { return nil }

// mockChunker emits one chunk per line of content.
type mockChunker struct {
	err error
}

func (c *mockChunker) ChunkDocument(doc *domain.Document) ([]domain.Document, error) {
	if c.err != nil {
		return nil, c.err
	}
	lines := strings.Split(doc.Content, "\n")
	chunks := make([]domain.Document, 0, len(lines))
	for i, line := range lines {
		meta := doc.CopyMetadata()
		meta[domain.MetaChunkIndex] = i
		meta[domain.MetaTotalChunks] = len(lines)
		meta[domain.MetaParentDocumentID] = doc.ID
		chunks = append(chunks, domain.Document{
			ID:          doc.ID + "-chunk-" + string(rune('a'+i)),
			Source:      doc.Source,
			SourceType:  doc.SourceType,
			URL:         doc.URL,
			Title:       doc.Title,
			Content:     line,
			ContentHash: domain.HashContent(line),
			Metadata:    meta,
		})
	}
	return chunks, nil
}
