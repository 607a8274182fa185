// Package qdrant implements the vector store port against a Qdrant server
// over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/logger"
)

// Config holds Qdrant connection settings.
type Config struct {
	// URL is the host:port of the Qdrant gRPC endpoint.
	URL string

	// APIKey authenticates against a secured deployment. Optional.
	APIKey string

	// CollectionName is the collection holding chunk points.
	CollectionName string

	// VectorSize is the embedding dimensionality. Must match the embedding
	// model in use.
	VectorSize int
}

// Store is a Qdrant-backed vector store.
type Store struct {
	client     *qdrant.Client
	collection string
}

var _ driven.VectorStore = (*Store)(nil)

// NewStore connects to Qdrant and ensures the collection exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		cfg.URL = "localhost:6334"
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("%w: qdrant collection name is required", domain.ErrInvalidConfig)
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("%w: qdrant vector size must be positive", domain.ErrInvalidConfig)
	}

	// The client takes host and port separately.
	host, portStr, err := net.SplitHostPort(cfg.URL)
	if err != nil {
		host = cfg.URL
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6334
	}

	clientConfig := &qdrant.Config{
		Host: host,
		Port: port,
	}
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	}

	client, err := qdrant.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	s := &Store{
		client:     client,
		collection: cfg.CollectionName,
	}

	if err := s.ensureCollection(ctx, cfg.VectorSize); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

// ensureCollection creates the collection if it does not exist.
func (s *Store) ensureCollection(ctx context.Context, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	logger.Info("Creating qdrant collection %s (dim=%d)", s.collection, vectorSize)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}
	return nil
}

// Search runs approximate nearest-neighbour search.
func (s *Store) Search(
	ctx context.Context,
	vector []float32,
	limit int,
	filter *domain.Filter,
	scoreThreshold float64,
) ([]driven.ScoredPoint, error) {
	threshold := float32(scoreThreshold)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         convertFilter(filter),
		Limit:          uintPtr(uint64(limit)),
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrVectorStoreUnavailable, err)
	}

	hits := make([]driven.ScoredPoint, 0, len(results))
	for _, point := range results {
		hits = append(hits, driven.ScoredPoint{
			Point: driven.Point{
				ID:      point.Id.GetUuid(),
				Payload: convertPayloadOut(point.Payload),
			},
			Score: float64(point.Score),
		})
	}
	return hits, nil
}

// Scroll pages through points matching the filter. The client exposes no
// next-page cursor, so one extra point is requested: its ID becomes the
// cursor and the Offset of the next call.
func (s *Store) Scroll(
	ctx context.Context, filter *domain.Filter, limit int, cursor string,
) ([]driven.Point, string, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         convertFilter(filter),
		Limit:          uint32Ptr(uint32(limit + 1)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if cursor != "" {
		req.Offset = qdrant.NewID(cursor)
	}

	results, err := s.client.Scroll(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: scroll: %v", domain.ErrVectorStoreUnavailable, err)
	}

	next := ""
	if len(results) > limit {
		next = results[limit].Id.GetUuid()
		results = results[:limit]
	}

	points := make([]driven.Point, 0, len(results))
	for _, point := range results {
		points = append(points, driven.Point{
			ID:      point.Id.GetUuid(),
			Payload: convertPayloadOut(point.Payload),
		})
	}
	return points, next, nil
}

// Retrieve fetches points by ID.
func (s *Store) Retrieve(ctx context.Context, ids []string) ([]driven.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}

	results, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", domain.ErrVectorStoreUnavailable, err)
	}

	points := make([]driven.Point, 0, len(results))
	for _, point := range results {
		points = append(points, driven.Point{
			ID:      point.Id.GetUuid(),
			Payload: convertPayloadOut(point.Payload),
		})
	}
	return points, nil
}

// Upsert writes points in batches.
func (s *Store) Upsert(ctx context.Context, points []driven.Point, wait bool) error {
	if len(points) == 0 {
		return nil
	}

	converted := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		converted[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: convertPayloadIn(p.Payload),
		}
	}

	const batchSize = 100
	for i := 0; i < len(converted); i += batchSize {
		end := i + batchSize
		if end > len(converted) {
			end = len(converted)
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         converted[i:end],
			Wait:           &wait,
		})
		if err != nil {
			return fmt.Errorf("%w: upsert batch %d-%d: %v",
				domain.ErrVectorStoreUnavailable, i, end, err)
		}
	}
	return nil
}

// DeleteByFilter removes all points matching the filter.
func (s *Store) DeleteByFilter(ctx context.Context, filter *domain.Filter) error {
	if filter.Empty() {
		return fmt.Errorf("%w: refusing to delete with empty filter", domain.ErrInvalidInput)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: convertFilter(filter),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: delete by filter: %v", domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// convertFilter translates a domain filter to qdrant conditions. Dotted keys
// address nested payload fields natively.
func convertFilter(filter *domain.Filter) *qdrant.Filter {
	if filter.Empty() {
		return nil
	}

	must := make([]*qdrant.Condition, 0, len(filter.Must))
	for _, cond := range filter.Must {
		switch match := cond.Match.(type) {
		case string:
			must = append(must, qdrant.NewMatch(cond.Key, match))
		case int64:
			must = append(must, qdrant.NewMatchInt(cond.Key, match))
		case []string:
			must = append(must, qdrant.NewMatchKeywords(cond.Key, match...))
		default:
			must = append(must, qdrant.NewMatch(cond.Key, fmt.Sprintf("%v", match)))
		}
	}
	return &qdrant.Filter{Must: must}
}

// convertPayloadIn converts a Go payload map to qdrant values.
func convertPayloadIn(payload map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		out[k] = convertValueIn(v)
	}
	return out
}

func convertValueIn(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return qdrant.NewValueString(val)
	case int:
		return qdrant.NewValueInt(int64(val))
	case int64:
		return qdrant.NewValueInt(val)
	case float64:
		return qdrant.NewValueDouble(val)
	case float32:
		return qdrant.NewValueDouble(float64(val))
	case bool:
		return qdrant.NewValueBool(val)
	case map[string]any:
		return &qdrant.Value{
			Kind: &qdrant.Value_StructValue{
				StructValue: &qdrant.Struct{Fields: convertPayloadIn(val)},
			},
		}
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = qdrant.NewValueString(s)
		}
		return &qdrant.Value{
			Kind: &qdrant.Value_ListValue{
				ListValue: &qdrant.ListValue{Values: values},
			},
		}
	default:
		return qdrant.NewValueString(fmt.Sprintf("%v", v))
	}
}

// convertPayloadOut converts qdrant values back to a Go payload map.
func convertPayloadOut(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = convertValueOut(v)
	}
	return out
}

func convertValueOut(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return convertPayloadOut(kind.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = convertValueOut(item)
		}
		return out
	default:
		return nil
	}
}

func uintPtr(v uint64) *uint64 {
	return &v
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}
