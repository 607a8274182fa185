package domain

import "time"

// StateKey uniquely identifies a logical document across ingestion runs.
// It is a typed composite key; string serialisation happens only at the
// storage boundary.
type StateKey struct {
	SourceType SourceType
	SourceName string
	DocumentID string
}

// DocumentStateRecord is the persisted record of a document's last-seen state.
// One record exists per logical document regardless of how many chunks it
// produced.
type DocumentStateRecord struct {
	SourceType SourceType
	SourceName string
	DocumentID string

	// ContentHash is the digest of the content at last successful ingestion.
	ContentHash string

	// LastUpdated is the source system's update timestamp.
	LastUpdated time.Time

	// LastIngested is when the document was last successfully processed.
	LastIngested time.Time

	// IsDeleted is a tombstone. Tombstoned records are never removed from
	// storage; a re-appearance of the same key flips this back to false.
	IsDeleted bool

	// CreatedAt and UpdatedAt are record bookkeeping timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key returns the composite key for this record.
func (r *DocumentStateRecord) Key() StateKey {
	return StateKey{
		SourceType: r.SourceType,
		SourceName: r.SourceName,
		DocumentID: r.DocumentID,
	}
}

// ChangeSet partitions a document batch against previously persisted state.
type ChangeSet struct {
	// New holds documents never seen before.
	New []Document

	// Updated holds documents whose content hash changed.
	Updated []Document

	// Deleted holds deletion markers for documents absent from the current
	// batch but present in prior state.
	Deleted []Document
}

// Empty reports whether the change set contains no work.
func (c *ChangeSet) Empty() bool {
	return len(c.New) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}
