package cli

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driving"
)

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() func() {
	oldSearch := searchService
	oldIngest := ingestService
	oldConnectors := connectors

	searchService = &mockSearchService{
		results: []domain.SearchResult{
			{
				ID:      "runbooks/deploy.md-chunk-a",
				Score:   0.95,
				Content: "This is a matching snippet",
				Metadata: map[string]any{
					"title": "Test Document",
					"url":   "file:///srv/docs/runbooks/deploy.md",
				},
			},
		},
	}
	ingestService = &mockIngestor{}
	connectors = nil

	return func() {
		searchService = oldSearch
		ingestService = oldIngest
		connectors = oldConnectors
	}
}

type mockSearchService struct {
	results  []domain.SearchResult
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, nil
}

type mockSearchServiceError struct{}

func (m *mockSearchServiceError) Search(
	_ context.Context,
	_ string,
	_ domain.SearchOptions,
) ([]domain.SearchResult, error) {
	return nil, errors.New("store unavailable")
}

type mockIngestor struct {
	result *domain.IngestResult
	err    error
}

func (m *mockIngestor) Ingest(
	_ context.Context,
	_ domain.SourceType,
	_ string,
	docs []domain.Document,
) (*domain.IngestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.IngestResult{Processed: len(docs), Succeeded: len(docs)}, nil
}

func (m *mockIngestor) Status(
	_ context.Context,
	sourceType domain.SourceType,
	sourceName string,
) (*driving.IngestStatus, error) {
	return &driving.IngestStatus{
		SourceType: sourceType,
		SourceName: sourceName,
		StartedAt:  time.Now(),
	}, nil
}

// mockConnector serves a fixed document batch.
type mockConnector struct {
	source string
	docs   []domain.Document
}

func (m *mockConnector) Type() domain.SourceType { return domain.SourceLocalFile }
func (m *mockConnector) Source() string          { return m.source }
func (m *mockConnector) Close() error            { return nil }

func (m *mockConnector) Fetch(_ context.Context) (<-chan domain.Document, <-chan error) {
	docs := make(chan domain.Document, len(m.docs))
	errs := make(chan error)
	for _, doc := range m.docs {
		docs <- doc
	}
	close(docs)
	close(errs)
	return docs, errs
}

func (m *mockConnector) Watch(_ context.Context) (<-chan domain.Document, error) {
	return nil, domain.ErrInvalidInput
}
