package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
)

// VectorStore is an in-memory VectorStore using exact cosine similarity.
// Suitable for development and tests; production deployments use the qdrant
// adapter.
type VectorStore struct {
	mu     sync.RWMutex
	points map[string]driven.Point
}

var _ driven.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{points: make(map[string]driven.Point)}
}

// Search runs exact cosine similarity over all stored points.
func (s *VectorStore) Search(
	_ context.Context,
	vector []float32,
	limit int,
	filter *domain.Filter,
	scoreThreshold float64,
) ([]driven.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.ScoredPoint
	for _, p := range s.points {
		if !matchesFilter(p.Payload, filter) {
			continue
		}
		score := cosineSimilarity(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, driven.ScoredPoint{Point: p, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Scroll pages through matching points in ID order. The cursor is the last
// returned point ID.
func (s *VectorStore) Scroll(
	_ context.Context, filter *domain.Filter, limit int, cursor string,
) ([]driven.Point, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.points))
	for id := range s.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []driven.Point
	for _, id := range ids {
		if cursor != "" && id <= cursor {
			continue
		}
		p := s.points[id]
		if !matchesFilter(p.Payload, filter) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			return out, id, nil
		}
	}
	return out, "", nil
}

// Retrieve fetches points by ID, silently omitting missing ones.
func (s *VectorStore) Retrieve(_ context.Context, ids []string) ([]driven.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []driven.Point
	for _, id := range ids {
		if p, ok := s.points[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Upsert writes points. The in-memory store is always synchronous, so wait is
// ignored.
func (s *VectorStore) Upsert(_ context.Context, points []driven.Point, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p.ID == "" {
			return domain.ErrInvalidInput
		}
		s.points[p.ID] = p
	}
	return nil
}

// DeleteByFilter removes all points matching the filter.
func (s *VectorStore) DeleteByFilter(_ context.Context, filter *domain.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.points {
		if matchesFilter(p.Payload, filter) {
			delete(s.points, id)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *VectorStore) Close() error {
	return nil
}

// Count returns the number of stored points.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// matchesFilter evaluates a conjunction of payload conditions. Dotted keys
// descend into the metadata sub-map.
func matchesFilter(payload map[string]any, filter *domain.Filter) bool {
	if filter.Empty() {
		return true
	}

	for _, cond := range filter.Must {
		value := lookupPayload(payload, cond.Key)
		switch match := cond.Match.(type) {
		case string:
			s, ok := value.(string)
			if !ok || s != match {
				return false
			}
		case int64:
			if !numericEqual(value, match) {
				return false
			}
		case []string:
			s, ok := value.(string)
			if !ok {
				return false
			}
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

// lookupPayload resolves a possibly dotted key against the payload.
func lookupPayload(payload map[string]any, key string) any {
	if nested, ok := strings.CutPrefix(key, "metadata."); ok {
		meta, _ := payload["metadata"].(map[string]any)
		return meta[nested]
	}
	return payload[key]
}

// numericEqual compares a payload value of any Go numeric type against an
// int64 match.
func numericEqual(value any, match int64) bool {
	switch n := value.(type) {
	case int:
		return int64(n) == match
	case int32:
		return int64(n) == match
	case int64:
		return n == match
	case float64:
		return n == float64(match)
	default:
		return false
	}
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
