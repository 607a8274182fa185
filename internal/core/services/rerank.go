package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/logger"
)

// maxRerankChars bounds the text passed to the cross-encoder per candidate.
// Cross-encoder models have small input windows and truncating here keeps
// scoring latency predictable.
const maxRerankChars = 1000

type encoderState int

const (
	encoderUnloaded encoderState = iota
	encoderLoaded
	encoderDisabled
)

// Reranker re-scores retrieval candidates with a cross-encoder model.
//
// The model loads lazily on first use. A failed load permanently disables
// reranking for the process lifetime; search quality degrades to fused
// retrieval scores rather than failing or retrying the load on every query.
type Reranker struct {
	encoder driven.CrossEncoder

	mu    sync.Mutex
	state encoderState
}

// NewReranker wraps a cross-encoder. The encoder may be nil, which yields a
// reranker that passes results through unchanged.
func NewReranker(encoder driven.CrossEncoder) *Reranker {
	return &Reranker{encoder: encoder}
}

// ensureLoaded transitions UNLOADED to LOADED or DISABLED exactly once.
func (r *Reranker) ensureLoaded(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case encoderLoaded:
		return true
	case encoderDisabled:
		return false
	}

	if r.encoder == nil {
		r.state = encoderDisabled
		return false
	}

	if err := r.encoder.Load(ctx); err != nil {
		logger.Warn("Cross-encoder load failed, reranking disabled: %v", err)
		r.state = encoderDisabled
		return false
	}

	logger.Debug("Cross-encoder loaded")
	r.state = encoderLoaded
	return true
}

// Rerank re-orders results by cross-encoder relevance to the query and
// truncates to topK. On any failure the original slice is returned
// unchanged, so reranking can only refine a result list, never lose it.
func (r *Reranker) Rerank(
	ctx context.Context, query string, results []domain.SearchResult, topK int,
) []domain.SearchResult {
	if r == nil || len(results) == 0 || strings.TrimSpace(query) == "" {
		return results
	}
	if !r.ensureLoaded(ctx) {
		return results
	}

	// Whitespace-only candidates cannot be scored; keep their positions out
	// of the cross-encoder batch but remember which results were sent.
	texts := make([]string, 0, len(results))
	indices := make([]int, 0, len(results))
	for i, res := range results {
		text := res.Content
		if strings.TrimSpace(text) == "" {
			continue
		}
		if len(text) > maxRerankChars {
			text = text[:maxRerankChars]
		}
		texts = append(texts, text)
		indices = append(indices, i)
	}
	if len(texts) == 0 {
		return results
	}

	scores, err := r.encoder.Score(ctx, query, texts)
	if err != nil || len(scores) != len(texts) {
		logger.Warn("Cross-encoder scoring failed, keeping retrieval order: %v", err)
		return results
	}

	reranked := make([]domain.SearchResult, len(indices))
	for pos, idx := range indices {
		res := results[idx]
		score := scores[pos]
		res.CrossEncoderScore = &score
		reranked[pos] = res
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return *reranked[i].CrossEncoderScore > *reranked[j].CrossEncoderScore
	})
	if topK > 0 && len(reranked) > topK {
		reranked = reranked[:topK]
	}
	for i := range reranked {
		reranked[i].CrossEncoderRank = i + 1
	}

	logger.Debug("Reranked %d candidates to top %d", len(texts), len(reranked))
	return reranked
}

// Close releases the underlying encoder.
func (r *Reranker) Close() error {
	if r == nil || r.encoder == nil {
		return nil
	}
	return r.encoder.Close()
}
