package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

func rerankInput() []domain.SearchResult {
	return []domain.SearchResult{
		{ID: "r1", Score: 0.9, Content: "short"},
		{ID: "r2", Score: 0.8, Content: "a considerably longer candidate text"},
		{ID: "r3", Score: 0.7, Content: "medium length text"},
	}
}

func TestRerank_ReordersByEncoderScore(t *testing.T) {
	// The mock scores by text length, so the longest candidate wins.
	encoder := &mockCrossEncoder{}
	reranker := NewReranker(encoder)

	results := reranker.Rerank(context.Background(), "query", rerankInput(), 10)

	require.Len(t, results, 3)
	assert.Equal(t, "r2", results[0].ID)
	assert.Equal(t, "r3", results[1].ID)
	assert.Equal(t, "r1", results[2].ID)

	for i, res := range results {
		require.NotNil(t, res.CrossEncoderScore, "result %d missing encoder score", i)
		assert.Equal(t, i+1, res.CrossEncoderRank)
	}
}

func TestRerank_TopKTruncation(t *testing.T) {
	reranker := NewReranker(&mockCrossEncoder{})

	results := reranker.Rerank(context.Background(), "query", rerankInput(), 2)

	require.Len(t, results, 2)
	assert.Equal(t, "r2", results[0].ID)
	assert.Equal(t, 1, results[0].CrossEncoderRank)
	assert.Equal(t, 2, results[1].CrossEncoderRank)
}

func TestRerank_NilEncoderIsIdentity(t *testing.T) {
	reranker := NewReranker(nil)
	input := rerankInput()

	results := reranker.Rerank(context.Background(), "query", input, 10)

	assert.Equal(t, input, results)
}

func TestRerank_LoadFailureDisablesPermanently(t *testing.T) {
	encoder := &mockCrossEncoder{loadErr: errors.New("model missing")}
	reranker := NewReranker(encoder)

	first := reranker.Rerank(context.Background(), "query", rerankInput(), 10)
	second := reranker.Rerank(context.Background(), "query", rerankInput(), 10)

	assert.Equal(t, rerankInput(), first)
	assert.Equal(t, rerankInput(), second)
	assert.Equal(t, 1, encoder.loads, "a failed load must not be retried")
	assert.Zero(t, encoder.calls, "disabled reranker must never score")
}

func TestRerank_LoadsOnce(t *testing.T) {
	encoder := &mockCrossEncoder{}
	reranker := NewReranker(encoder)

	reranker.Rerank(context.Background(), "query", rerankInput(), 10)
	reranker.Rerank(context.Background(), "query", rerankInput(), 10)

	assert.Equal(t, 1, encoder.loads)
	assert.Equal(t, 2, encoder.calls)
}

func TestRerank_ScoreFailureKeepsOriginalOrder(t *testing.T) {
	encoder := &mockCrossEncoder{scoreErr: errors.New("inference timeout")}
	reranker := NewReranker(encoder)
	input := rerankInput()

	results := reranker.Rerank(context.Background(), "query", input, 10)

	assert.Equal(t, input, results)
}

func TestRerank_EmptyInputs(t *testing.T) {
	encoder := &mockCrossEncoder{}
	reranker := NewReranker(encoder)

	assert.Empty(t, reranker.Rerank(context.Background(), "query", nil, 10))
	assert.Equal(t, rerankInput(), reranker.Rerank(context.Background(), "  ", rerankInput(), 10))
	assert.Zero(t, encoder.calls)
}

func TestRerank_SkipsWhitespaceOnlyCandidates(t *testing.T) {
	encoder := &mockCrossEncoder{}
	reranker := NewReranker(encoder)
	input := []domain.SearchResult{
		{ID: "blank", Content: "   \n\t"},
		{ID: "real", Content: "actual text"},
	}

	results := reranker.Rerank(context.Background(), "query", input, 10)

	require.Len(t, results, 1)
	assert.Equal(t, "real", results[0].ID)
}

func TestRerank_AllWhitespaceIsIdentity(t *testing.T) {
	reranker := NewReranker(&mockCrossEncoder{})
	input := []domain.SearchResult{{ID: "blank", Content: " "}}

	assert.Equal(t, input, reranker.Rerank(context.Background(), "query", input, 10))
}

func TestRerank_TruncatesLongCandidates(t *testing.T) {
	encoder := &mockCrossEncoder{}
	reranker := NewReranker(encoder)
	input := []domain.SearchResult{
		{ID: "long", Content: strings.Repeat("x", 5000)},
	}

	results := reranker.Rerank(context.Background(), "query", input, 10)

	require.Len(t, results, 1)
	require.NotNil(t, results[0].CrossEncoderScore)
	// Length-based mock score proves the text was capped before scoring.
	assert.Equal(t, float64(maxRerankChars), *results[0].CrossEncoderScore)
	// The stored result keeps its full content.
	assert.Len(t, results[0].Content, 5000)
}
