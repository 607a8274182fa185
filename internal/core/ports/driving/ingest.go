package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/corpora/internal/core/domain"
)

// IngestStatus describes an active or idle ingestion run.
type IngestStatus struct {
	SourceType         domain.SourceType
	SourceName         string
	Running            bool
	StartedAt          time.Time
	DocumentsProcessed int
	ErrorCount         int
}

// Ingestor runs the ingestion pipeline for a batch of documents.
type Ingestor interface {
	// Ingest classifies the batch against persisted state, then chunks,
	// embeds and upserts the new and updated documents. Partial failures are
	// reported in the result, not returned as an error.
	Ingest(ctx context.Context, sourceType domain.SourceType, sourceName string, docs []domain.Document) (*domain.IngestResult, error)

	// Status returns the ingestion status for a source scope.
	Status(ctx context.Context, sourceType domain.SourceType, sourceName string) (*IngestStatus, error)
}
