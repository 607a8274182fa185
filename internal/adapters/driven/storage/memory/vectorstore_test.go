package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
)

func point(id string, vector []float32, sourceType, parent string) driven.Point {
	return driven.Point{
		ID:     id,
		Vector: vector,
		Payload: map[string]any{
			"content":     "content of " + id,
			"source_type": sourceType,
			"metadata": map[string]any{
				"parent_document_id": parent,
				"chunk_index":        0,
			},
		},
	}
}

func TestVectorStore_SearchRanksByCosine(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []driven.Point{
		point("aligned", []float32{1, 0, 0}, "git", "d1"),
		point("close", []float32{0.9, 0.1, 0}, "git", "d1"),
		point("orthogonal", []float32{0, 1, 0}, "git", "d2"),
	}, true))

	hits, err := store.Search(ctx, []float32{1, 0, 0}, 10, nil, 0.3)
	require.NoError(t, err)

	require.Len(t, hits, 2, "orthogonal vector must fall below threshold")
	assert.Equal(t, "aligned", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "close", hits[1].ID)
}

func TestVectorStore_SearchFilter(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []driven.Point{
		point("g1", []float32{1, 0, 0}, "git", "d1"),
		point("j1", []float32{1, 0, 0}, "jira", "d2"),
	}, true))

	filter := &domain.Filter{Must: []domain.Condition{{Key: "source_type", Match: "jira"}}}
	hits, err := store.Search(ctx, []float32{1, 0, 0}, 10, filter, 0)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "j1", hits[0].ID)
}

func TestVectorStore_FilterVariants(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []driven.Point{
		point("p1", []float32{1, 0, 0}, "git", "d1"),
	}, true))

	tests := []struct {
		name   string
		filter *domain.Filter
		want   int
	}{
		{"nil filter", nil, 1},
		{"dotted metadata key", &domain.Filter{Must: []domain.Condition{
			{Key: "metadata.parent_document_id", Match: "d1"},
		}}, 1},
		{"numeric metadata key", &domain.Filter{Must: []domain.Condition{
			{Key: "metadata.chunk_index", Match: int64(0)},
		}}, 1},
		{"match-any list", &domain.Filter{Must: []domain.Condition{
			{Key: "source_type", Match: []string{"jira", "git"}},
		}}, 1},
		{"non-matching", &domain.Filter{Must: []domain.Condition{
			{Key: "source_type", Match: "confluence"},
		}}, 0},
		{"conjunction fails on one miss", &domain.Filter{Must: []domain.Condition{
			{Key: "source_type", Match: "git"},
			{Key: "metadata.parent_document_id", Match: "other"},
		}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, _, err := store.Scroll(ctx, tt.filter, 10, "")
			require.NoError(t, err)
			assert.Len(t, points, tt.want)
		})
	}
}

func TestVectorStore_ScrollPagination(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []driven.Point{
		point("a", []float32{1, 0, 0}, "git", "d1"),
		point("b", []float32{1, 0, 0}, "git", "d1"),
		point("c", []float32{1, 0, 0}, "git", "d1"),
	}, true))

	first, cursor, err := store.Scroll(ctx, nil, 2, "")
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotEmpty(t, cursor)

	rest, next, err := store.Scroll(ctx, nil, 2, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Empty(t, next)

	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, "b", first[1].ID)
	assert.Equal(t, "c", rest[0].ID)
}

func TestVectorStore_Retrieve(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []driven.Point{
		point("a", []float32{1, 0, 0}, "git", "d1"),
	}, true))

	points, err := store.Retrieve(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "a", points[0].ID)
}

func TestVectorStore_UpsertOverwritesByID(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	p := point("a", []float32{1, 0, 0}, "git", "d1")
	require.NoError(t, store.Upsert(ctx, []driven.Point{p}, true))

	p.Payload["content"] = "rewritten"
	require.NoError(t, store.Upsert(ctx, []driven.Point{p}, true))

	assert.Equal(t, 1, store.Count())
	points, err := store.Retrieve(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", points[0].Payload["content"])
}

func TestVectorStore_UpsertRejectsEmptyID(t *testing.T) {
	store := NewVectorStore()

	err := store.Upsert(context.Background(), []driven.Point{{ID: ""}}, true)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorStore_DeleteByFilter(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []driven.Point{
		point("a", []float32{1, 0, 0}, "git", "d1"),
		point("b", []float32{1, 0, 0}, "git", "d1"),
		point("c", []float32{1, 0, 0}, "git", "d2"),
	}, true))

	filter := &domain.Filter{Must: []domain.Condition{
		{Key: "metadata.parent_document_id", Match: "d1"},
	}}
	require.NoError(t, store.DeleteByFilter(ctx, filter))

	assert.Equal(t, 1, store.Count())
	points, err := store.Retrieve(ctx, []string{"c"})
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "length mismatch")
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector")
}
