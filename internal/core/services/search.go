package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/core/ports/driving"
	"github.com/custodia-labs/corpora/internal/logger"
)

// Ensure HybridRetriever implements the interface.
var _ driving.SearchService = (*HybridRetriever)(nil)

// Default retrieval parameters.
const (
	DefaultLimit          = 10
	DefaultScoreThreshold = 0.3
	DefaultOversample     = 2
	DefaultScanPageSize   = 256
	DefaultMaxScanPages   = 64
)

// RetrieverConfig tunes the hybrid retrieval pipeline.
type RetrieverConfig struct {
	// VectorWeight and KeywordWeight control score fusion. They default to
	// equal weighting.
	VectorWeight  float64
	KeywordWeight float64

	// ScoreThreshold is the similarity floor for vector matches.
	ScoreThreshold float64

	// Oversample multiplies the final limit for both legs so fusion has
	// enough candidates to rank from.
	Oversample int

	// ScanPageSize bounds each keyword-scan page.
	ScanPageSize int

	// MaxScanPages caps the keyword full-collection scan. Keyword search is
	// a correctness-over-efficiency fallback and does not scale beyond
	// moderate collection sizes.
	MaxScanPages int
}

func (c RetrieverConfig) withDefaults() RetrieverConfig {
	if c.VectorWeight == 0 && c.KeywordWeight == 0 {
		c.VectorWeight, c.KeywordWeight = 0.5, 0.5
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.Oversample <= 0 {
		c.Oversample = DefaultOversample
	}
	if c.ScanPageSize <= 0 {
		c.ScanPageSize = DefaultScanPageSize
	}
	if c.MaxScanPages <= 0 {
		c.MaxScanPages = DefaultMaxScanPages
	}
	return c
}

// scoredHit is an intermediate result from one retrieval leg.
type scoredHit struct {
	id       string
	score    float64
	content  string
	metadata map[string]any
}

// HybridRetriever combines dense vector similarity and sparse keyword
// matching against the vector store, with optional cross-encoder reranking.
type HybridRetriever struct {
	vectors  driven.VectorStore
	embedder driven.EmbeddingService
	reranker *Reranker
	cfg      RetrieverConfig
}

// NewHybridRetriever creates a hybrid retriever. The embedder may be nil, in
// which case only keyword search runs. The reranker may be nil.
func NewHybridRetriever(
	vectors driven.VectorStore,
	embedder driven.EmbeddingService,
	reranker *Reranker,
	cfg RetrieverConfig,
) *HybridRetriever {
	return &HybridRetriever{
		vectors:  vectors,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg.withDefaults(),
	}
}

// Search runs hybrid retrieval for the query.
func (r *HybridRetriever) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	if r.vectors == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	parsed := ParseFieldQueries(query)
	filter := BuildFilter(parsed, opts)

	if parsed.FilterOnly() {
		logger.Debug("Filter-only mode: %d field queries, no free text", len(parsed.Fields))
		results, err := r.filterOnlySearch(ctx, filter, limit)
		if err != nil {
			return nil, fmt.Errorf("filter-only search: %w", err)
		}
		return paginate(results, opts.Offset, limit), nil
	}

	internalLimit := limit * r.cfg.Oversample
	logger.Debug("Hybrid search: limit=%d, internal=%d", limit, internalLimit)

	var vectorHits, keywordHits []scoredHit
	var vectorErr, keywordErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorHits, vectorErr = r.vectorSearch(gctx, parsed.Text, internalLimit, filter)
		return nil
	})
	g.Go(func() error {
		keywordHits, keywordErr = r.keywordSearch(gctx, parsed.Text, internalLimit, filter)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Degrade gracefully if one leg fails; fail only when both do.
	if vectorErr != nil && keywordErr != nil {
		return nil, fmt.Errorf("hybrid search: vector=%w, keyword=%w", vectorErr, keywordErr)
	}
	if vectorErr != nil {
		logger.Warn("Vector search failed, using keyword results only: %v", vectorErr)
	}
	if keywordErr != nil {
		logger.Warn("Keyword search failed, using vector results only: %v", keywordErr)
	}

	results := r.fuse(vectorHits, keywordHits)
	logger.Debug("Fused %d vector + %d keyword hits into %d results",
		len(vectorHits), len(keywordHits), len(results))

	if opts.Rerank && r.reranker != nil {
		results = r.reranker.Rerank(ctx, parsed.Text, results, limit)
	}

	return paginate(results, opts.Offset, limit), nil
}

// vectorSearch embeds the query and runs approximate nearest-neighbour
// search with the configured similarity floor.
func (r *HybridRetriever) vectorSearch(
	ctx context.Context, query string, limit int, filter *domain.Filter,
) ([]scoredHit, error) {
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	points, err := r.vectors.Search(ctx, vector, limit, filter, r.cfg.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]scoredHit, len(points))
	for i, p := range points {
		hits[i] = scoredHit{
			id:       p.ID,
			score:    p.Score,
			content:  payloadContent(p.Payload),
			metadata: p.Payload,
		}
	}
	return hits, nil
}

// keywordSearch scans stored payloads for token overlap with the query. It
// catches exact-term queries that dense retrieval under-ranks (code
// identifiers, IDs, acronyms) without re-embedding.
func (r *HybridRetriever) keywordSearch(
	ctx context.Context, query string, limit int, filter *domain.Filter,
) ([]scoredHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []scoredHit
	cursor := ""

	for page := 0; page < r.cfg.MaxScanPages; page++ {
		points, next, err := r.vectors.Scroll(ctx, filter, r.cfg.ScanPageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("scroll page %d: %w", page, err)
		}

		for _, p := range points {
			content := payloadContent(p.Payload)
			if score := keywordScore(content, terms); score > 0 {
				hits = append(hits, scoredHit{
					id:       p.ID,
					score:    score,
					content:  content,
					metadata: p.Payload,
				})
			}
		}

		if next == "" {
			break
		}
		cursor = next
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// keywordScore is the fraction of query terms present in the content.
func keywordScore(content string, terms []string) float64 {
	lower := strings.ToLower(content)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// fuse normalises both score lists to [0,1] and combines them by weighted
// sum keyed by point ID. A document present in only one list keeps that
// list's normalised score with the missing side treated as 0. Ties break by
// ID so repeated runs over identical inputs rank identically.
func (r *HybridRetriever) fuse(vectorHits, keywordHits []scoredHit) []domain.SearchResult {
	normalise(vectorHits)
	normalise(keywordHits)

	merged := make(map[string]*domain.SearchResult)
	for _, h := range vectorHits {
		merged[h.id] = &domain.SearchResult{
			ID:          h.id,
			VectorScore: h.score,
			Content:     h.content,
			Metadata:    h.metadata,
		}
	}
	for _, h := range keywordHits {
		if existing, ok := merged[h.id]; ok {
			existing.KeywordScore = h.score
			continue
		}
		merged[h.id] = &domain.SearchResult{
			ID:           h.id,
			KeywordScore: h.score,
			Content:      h.content,
			Metadata:     h.metadata,
		}
	}

	results := make([]domain.SearchResult, 0, len(merged))
	for _, res := range merged {
		res.Score = r.cfg.VectorWeight*res.VectorScore + r.cfg.KeywordWeight*res.KeywordScore
		results = append(results, *res)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results
}

// normalise scales scores to [0,1] by the list maximum.
func normalise(hits []scoredHit) {
	var max float64
	for _, h := range hits {
		if h.score > max {
			max = h.score
		}
	}
	if max <= 0 {
		return
	}
	for i := range hits {
		hits[i].score /= max
	}
}

// filterOnlySearch runs a direct metadata-filtered fetch instead of
// similarity search. An exact-match lookup is both faster and more correct
// than approximate KNN when the query is entirely structured.
func (r *HybridRetriever) filterOnlySearch(
	ctx context.Context, filter *domain.Filter, limit int,
) ([]domain.SearchResult, error) {
	if filter.Empty() {
		return nil, errors.New("filter-only search requires at least one condition")
	}

	points, _, err := r.vectors.Scroll(ctx, filter, limit, "")
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, len(points))
	for i, p := range points {
		results[i] = domain.SearchResult{
			ID:       p.ID,
			Score:    1.0,
			Content:  payloadContent(p.Payload),
			Metadata: p.Payload,
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// payloadContent extracts the chunk text from a stored payload.
func payloadContent(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload["content"].(string); ok {
		return s
	}
	return ""
}

// paginate applies offset and limit.
func paginate(results []domain.SearchResult, offset, limit int) []domain.SearchResult {
	if offset >= len(results) {
		return []domain.SearchResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
