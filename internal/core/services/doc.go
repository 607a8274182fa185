// Package services contains the core business logic: change detection,
// ingestion orchestration, hybrid search and reranking.
package services
