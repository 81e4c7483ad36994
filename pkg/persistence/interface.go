package persistence

import "errors"

// ErrJournalClosed is returned by every operation after Close.
var ErrJournalClosed = errors.New("signature journal is closed")

// ISignatureJournal records every artifact the signer produces, keyed by the digest
// that was signed. All implementations must be thread-safe as signing is concurrent.
type ISignatureJournal interface {
	// SaveRecord persists a record under its digest.
	// Overwrites any existing record with the same digest, so saving is idempotent.
	SaveRecord(record *SignatureRecord) error

	// LoadRecord retrieves a record by its base58 digest.
	// Returns nil if the record doesn't exist, error only on storage failure.
	LoadRecord(digest string) (*SignatureRecord, error)

	// ListRecords returns records matching filter sorted by CreatedAt (ascending).
	// A nil filter matches everything. Returns empty slice if nothing matches.
	ListRecords(filter *RecordFilter) ([]*SignatureRecord, error)

	// DeleteRecord removes a record by digest.
	// Idempotent - returns nil if the record doesn't exist.
	DeleteRecord(digest string) error

	// Close cleanly shuts down the journal.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return ErrJournalClosed.
	Close() error

	// HealthCheck verifies the journal is operational.
	HealthCheck() error
}
