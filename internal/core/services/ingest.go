package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
	"github.com/custodia-labs/corpora/internal/core/ports/driving"
	"github.com/custodia-labs/corpora/internal/logger"
)

var _ driving.Ingestor = (*IngestOrchestrator)(nil)

// ingestUnit carries one document through the staged pipeline. A unit that
// fails a stage keeps its error and skips the remaining stages, so one bad
// document never aborts the batch.
type ingestUnit struct {
	doc     domain.Document
	replace bool
	chunks  []domain.Document
	points  []driven.Point
	err     error
}

// IngestOrchestrator drives the full ingestion pipeline: change detection,
// chunking, embedding, vector upsert and state persistence.
type IngestOrchestrator struct {
	tracker  *BatchTracker
	detector *ChangeDetector
	chunker  driven.DocumentChunker
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	states   driven.DocumentStateStore
}

// NewIngestOrchestrator wires the pipeline dependencies.
func NewIngestOrchestrator(
	tracker *BatchTracker,
	detector *ChangeDetector,
	chunker driven.DocumentChunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	states driven.DocumentStateStore,
) *IngestOrchestrator {
	return &IngestOrchestrator{
		tracker:  tracker,
		detector: detector,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		states:   states,
	}
}

// Ingest runs one ingestion pass for a source scope. The docs slice is the
// complete current batch from the connector; documents absent from it are
// tombstoned. Per-document failures are reported in the result.
func (o *IngestOrchestrator) Ingest(
	ctx context.Context,
	sourceType domain.SourceType,
	sourceName string,
	docs []domain.Document,
) (*domain.IngestResult, error) {
	if err := o.tracker.Begin(sourceType, sourceName); err != nil {
		return nil, err
	}
	defer o.tracker.Finish(sourceType, sourceName)

	logger.Section("Ingestion")
	logger.Info("Processing batch of %d documents from %s/%s", len(docs), sourceType, sourceName)

	changes, err := o.detector.Detect(ctx, sourceType, sourceName, docs)
	if err != nil {
		return nil, fmt.Errorf("detect changes: %w", err)
	}

	result := &domain.IngestResult{}
	if changes.Empty() {
		logger.Info("No changes detected, nothing to do")
		return result, nil
	}

	if err := o.processChanges(ctx, sourceType, sourceName, changes, result); err != nil {
		return nil, err
	}
	if err := o.processDeletions(ctx, changes.Deleted, result); err != nil {
		return nil, err
	}

	logger.Info("Ingestion complete: %d succeeded, %d failed, %d deleted, %d chunks",
		result.Succeeded, result.Failed, result.Deleted, result.ChunksUpserted)
	return result, nil
}

// processChanges runs new and updated documents through the staged pipeline.
func (o *IngestOrchestrator) processChanges(
	ctx context.Context,
	sourceType domain.SourceType,
	sourceName string,
	changes *domain.ChangeSet,
	result *domain.IngestResult,
) error {
	units := make([]ingestUnit, 0, len(changes.New)+len(changes.Updated))
	for _, doc := range changes.New {
		units = append(units, ingestUnit{doc: withStableID(doc)})
	}
	for _, doc := range changes.Updated {
		units = append(units, ingestUnit{doc: withStableID(doc), replace: true})
	}
	if len(units) == 0 {
		return nil
	}

	chunked := o.chunkStage(ctx, units)
	embedded := o.embedStage(ctx, chunked)

	for unit := range embedded {
		result.Processed++
		if unit.err != nil {
			result.RecordError(fmt.Sprintf("%s: %v", unit.doc.ID, unit.err))
			o.tracker.Update(sourceType, sourceName, result.Processed, result.Failed)
			continue
		}

		if err := o.upsert(ctx, sourceType, sourceName, unit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.RecordError(fmt.Sprintf("%s: %v", unit.doc.ID, err))
		} else {
			result.Succeeded++
			result.ChunksUpserted += len(unit.points)
		}
		o.tracker.Update(sourceType, sourceName, result.Processed, result.Failed)
	}

	return ctx.Err()
}

// chunkStage splits each document into chunk documents.
func (o *IngestOrchestrator) chunkStage(ctx context.Context, units []ingestUnit) <-chan ingestUnit {
	out := make(chan ingestUnit)
	go func() {
		defer close(out)
		for _, unit := range units {
			if unit.err == nil {
				chunks, err := o.chunker.ChunkDocument(&unit.doc)
				if err != nil {
					unit.err = fmt.Errorf("chunk: %w", err)
				} else {
					unit.chunks = chunks
				}
			}
			select {
			case out <- unit:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// embedStage embeds chunk contents and builds vector store points. Chunks of
// one document are embedded as a single batch.
func (o *IngestOrchestrator) embedStage(ctx context.Context, in <-chan ingestUnit) <-chan ingestUnit {
	out := make(chan ingestUnit)
	go func() {
		defer close(out)
		for unit := range in {
			if unit.err == nil && len(unit.chunks) > 0 {
				texts := make([]string, len(unit.chunks))
				for i, chunk := range unit.chunks {
					texts[i] = chunk.Content
				}

				vectors, err := o.embedder.EmbedBatch(ctx, texts)
				switch {
				case err != nil:
					unit.err = fmt.Errorf("embed: %w", err)
				case len(vectors) != len(unit.chunks):
					unit.err = fmt.Errorf("embed: got %d vectors for %d chunks",
						len(vectors), len(unit.chunks))
				default:
					unit.points = make([]driven.Point, len(unit.chunks))
					for i, chunk := range unit.chunks {
						unit.points[i] = driven.Point{
							ID:      chunk.ID,
							Vector:  vectors[i],
							Payload: chunkPayload(chunk),
						}
					}
				}
			}
			select {
			case out <- unit:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// upsert writes a document's chunk points and persists its state record.
// Updated documents have their previous chunks deleted first so a re-chunk
// that produces fewer chunks leaves no orphans. State is persisted only after
// the upsert succeeds; a failure here leaves the old record so the document
// is retried next run.
func (o *IngestOrchestrator) upsert(
	ctx context.Context,
	sourceType domain.SourceType,
	sourceName string,
	unit ingestUnit,
) error {
	if unit.replace {
		filter := &domain.Filter{Must: []domain.Condition{
			{Key: "metadata." + domain.MetaParentDocumentID, Match: unit.doc.ID},
		}}
		if err := o.vectors.DeleteByFilter(ctx, filter); err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
	}

	if len(unit.points) > 0 {
		if err := o.vectors.Upsert(ctx, unit.points, true); err != nil {
			return fmt.Errorf("upsert chunks: %w", err)
		}
	}

	unit.doc.EnsureHash()
	record := domain.DocumentStateRecord{
		SourceType:   sourceType,
		SourceName:   sourceName,
		DocumentID:   unit.doc.ID,
		ContentHash:  unit.doc.ContentHash,
		LastUpdated:  unit.doc.UpdatedAt,
		LastIngested: time.Now().UTC(),
	}
	if err := o.states.Upsert(ctx, record); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	return nil
}

// processDeletions removes chunks of vanished documents and tombstones their
// state records.
func (o *IngestOrchestrator) processDeletions(
	ctx context.Context, deleted []domain.Document, result *domain.IngestResult,
) error {
	for _, marker := range deleted {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		filter := &domain.Filter{Must: []domain.Condition{
			{Key: "metadata." + domain.MetaParentDocumentID, Match: marker.ID},
		}}
		if err := o.vectors.DeleteByFilter(ctx, filter); err != nil {
			result.RecordError(fmt.Sprintf("delete chunks of %s: %v", marker.ID, err))
			continue
		}

		key := domain.StateKey{
			SourceType: marker.SourceType,
			SourceName: marker.Source,
			DocumentID: marker.ID,
		}
		if err := o.states.MarkDeleted(ctx, key); err != nil {
			result.RecordError(fmt.Sprintf("tombstone %s: %v", marker.ID, err))
			continue
		}

		result.Deleted++
	}
	return nil
}

// Status reports the ingestion status for a source scope.
func (o *IngestOrchestrator) Status(
	_ context.Context, sourceType domain.SourceType, sourceName string,
) (*driving.IngestStatus, error) {
	status := o.tracker.Status(sourceType, sourceName)
	return &status, nil
}

// withStableID ensures URL-keyed documents carry their key as ID so chunk
// parent references and state records agree with change detection.
func withStableID(doc domain.Document) domain.Document {
	if doc.ID == "" {
		doc.ID = doc.URL
	}
	return doc
}

// chunkPayload builds the vector store payload for a chunk document.
func chunkPayload(chunk domain.Document) map[string]any {
	parent, _ := chunk.Metadata[domain.MetaParentDocumentID].(string)
	return map[string]any{
		"content":      chunk.Content,
		"source":       chunk.Source,
		"source_type":  string(chunk.SourceType),
		"url":          chunk.URL,
		"title":        chunk.Title,
		"document_id":  parent,
		"content_hash": chunk.ContentHash,
		"metadata":     chunk.Metadata,
	}
}
