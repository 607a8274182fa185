package domain

// IngestResult aggregates the outcome of one ingestion pass. Partial failures
// are reported here per document rather than thrown past the batch boundary.
type IngestResult struct {
	// Processed is the number of new/updated documents that entered the
	// pipeline. Unchanged documents are skipped before this count.
	Processed int

	// Succeeded is the number of documents fully chunked, embedded and
	// upserted.
	Succeeded int

	// Failed is the number of documents that failed at any pipeline stage.
	Failed int

	// Deleted is the number of documents tombstoned this pass.
	Deleted int

	// ChunksUpserted is the total number of chunk points written to the
	// vector store.
	ChunksUpserted int

	// Errors holds one message per failed document.
	Errors []string
}

// RecordError notes a per-document failure.
func (r *IngestResult) RecordError(msg string) {
	r.Failed++
	r.Errors = append(r.Errors, msg)
}
