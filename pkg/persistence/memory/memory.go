package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of ISignatureJournal.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// digest -> record
	records map[string]*persistence.SignatureRecord

	closed bool
}

var _ persistence.ISignatureJournal = (*MemoryPersistence)(nil)

// NewMemoryPersistence creates a new in-memory journal.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		records: make(map[string]*persistence.SignatureRecord),
	}
}

func (m *MemoryPersistence) SaveRecord(record *persistence.SignatureRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil SignatureRecord")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid SignatureRecord: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrJournalClosed
	}

	m.records[record.Digest] = deepCopyRecord(record)
	return nil
}

func (m *MemoryPersistence) LoadRecord(digest string) (*persistence.SignatureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrJournalClosed
	}

	record, exists := m.records[digest]
	if !exists {
		return nil, nil
	}
	return deepCopyRecord(record), nil
}

func (m *MemoryPersistence) ListRecords(filter *persistence.RecordFilter) ([]*persistence.SignatureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrJournalClosed
	}

	records := make([]*persistence.SignatureRecord, 0, len(m.records))
	for _, record := range m.records {
		if filter.Matches(record) {
			records = append(records, deepCopyRecord(record))
		}
	}
	return persistence.SortAndLimit(records, filter), nil
}

func (m *MemoryPersistence) DeleteRecord(digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrJournalClosed
	}

	delete(m.records, digest)
	return nil
}

// Close marks the journal closed. Idempotent.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrJournalClosed
	}
	return nil
}

func deepCopyRecord(record *persistence.SignatureRecord) *persistence.SignatureRecord {
	cp := *record
	if record.Artifact != nil {
		cp.Artifact = append([]byte(nil), record.Artifact...)
	}
	return &cp
}
