// Package sqlite provides SQLite-backed persistence for document ingestion
// state. The database lives alongside other corpora data under the user's
// data directory and is migrated automatically on open.
package sqlite
