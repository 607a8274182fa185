package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/corpora/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/corpora/internal/core/domain"
	"github.com/custodia-labs/corpora/internal/core/ports/driven"
)

// Store is a SQLite-backed document state store.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.DocumentStateStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.corpora/data/state.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".corpora", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "state.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_document_states.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Get retrieves the state record for a key.
func (s *Store) Get(ctx context.Context, key domain.StateKey) (*domain.DocumentStateRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source_type, source_name, document_id, content_hash,
		       last_updated, last_ingested, is_deleted, created_at, updated_at
		FROM document_states
		WHERE source_type = ? AND source_name = ? AND document_id = ?
	`, string(key.SourceType), key.SourceName, key.DocumentID)

	return scanStateRecord(row)
}

// List returns records scoped to (sourceType, sourceName).
func (s *Store) List(
	ctx context.Context,
	sourceType domain.SourceType,
	sourceName string,
	includeDeleted bool,
) ([]domain.DocumentStateRecord, error) {
	query := `
		SELECT source_type, source_name, document_id, content_hash,
		       last_updated, last_ingested, is_deleted, created_at, updated_at
		FROM document_states
		WHERE source_type = ? AND source_name = ?
	`
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}
	query += " ORDER BY document_id"

	rows, err := s.db.QueryContext(ctx, query, string(sourceType), sourceName)
	if err != nil {
		return nil, fmt.Errorf("querying document states: %w", err)
	}
	defer rows.Close()

	var records []domain.DocumentStateRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanStateRecordRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document states: %w", err)
	}

	return records, nil
}

// Upsert stores or updates a record by key. Upserting a tombstoned key flips
// the tombstone back to live.
func (s *Store) Upsert(ctx context.Context, record domain.DocumentStateRecord) error {
	if record.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_states
			(source_type, source_name, document_id, content_hash,
			 last_updated, last_ingested, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(source_type, source_name, document_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			last_updated = excluded.last_updated,
			last_ingested = excluded.last_ingested,
			is_deleted = 0,
			updated_at = excluded.updated_at
	`, string(record.SourceType), record.SourceName, record.DocumentID,
		record.ContentHash, record.LastUpdated, record.LastIngested,
		record.CreatedAt, record.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upserting document state: %w", err)
	}
	return nil
}

// MarkDeleted tombstones a record. The record is kept so re-deletion stays
// idempotent and a re-appearance is detectable.
func (s *Store) MarkDeleted(ctx context.Context, key domain.StateKey) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE document_states
		SET is_deleted = 1, updated_at = ?
		WHERE source_type = ? AND source_name = ? AND document_id = ?
	`, time.Now().UTC(), string(key.SourceType), key.SourceName, key.DocumentID)
	if err != nil {
		return fmt.Errorf("tombstoning document state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking tombstone result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanStateRecord scans a single state record row.
func scanStateRecord(row *sql.Row) (*domain.DocumentStateRecord, error) {
	var rec domain.DocumentStateRecord
	var sourceType string
	var lastUpdated, lastIngested sql.NullTime

	if err := row.Scan(&sourceType, &rec.SourceName, &rec.DocumentID, &rec.ContentHash,
		&lastUpdated, &lastIngested, &rec.IsDeleted, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document state: %w", err)
	}

	rec.SourceType = domain.SourceType(sourceType)
	if lastUpdated.Valid {
		rec.LastUpdated = lastUpdated.Time
	}
	if lastIngested.Valid {
		rec.LastIngested = lastIngested.Time
	}

	return &rec, nil
}

// scanStateRecordRows scans a state record from *sql.Rows.
func scanStateRecordRows(rows *sql.Rows) (*domain.DocumentStateRecord, error) {
	var rec domain.DocumentStateRecord
	var sourceType string
	var lastUpdated, lastIngested sql.NullTime

	if err := rows.Scan(&sourceType, &rec.SourceName, &rec.DocumentID, &rec.ContentHash,
		&lastUpdated, &lastIngested, &rec.IsDeleted, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scanning document state: %w", err)
	}

	rec.SourceType = domain.SourceType(sourceType)
	if lastUpdated.Valid {
		rec.LastUpdated = lastUpdated.Time
	}
	if lastIngested.Valid {
		rec.LastIngested = lastIngested.Time
	}

	return &rec, nil
}
