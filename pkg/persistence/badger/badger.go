package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// Key prefixes for namespacing
const (
	keyPrefixSignature   = "sig:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerPersistence is a disk-backed signature journal.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ISignatureJournal = (*BadgerPersistence)(nil)

// NewBadgerPersistence opens a Badger journal at dataPath with SyncWrites enabled.
// A background goroutine is started for garbage collection.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newBadgerLogger(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic value log garbage collection in the background
func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func recordKey(digest string) []byte {
	return []byte(keyPrefixSignature + digest)
}

// SaveRecord persists a record under its digest
func (b *BadgerPersistence) SaveRecord(record *persistence.SignatureRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil SignatureRecord")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid SignatureRecord: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrJournalClosed
	}

	data, err := persistence.MarshalSignatureRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SignatureRecord: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(recordKey(record.Digest), data)
	})
}

// LoadRecord retrieves a record by digest
func (b *BadgerPersistence) LoadRecord(digest string) (*persistence.SignatureRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrJournalClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(recordKey(digest))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil // Not found is not an error
		}
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load SignatureRecord: %w", err)
	}

	if data == nil {
		return nil, nil
	}

	record, err := persistence.UnmarshalSignatureRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal SignatureRecord: %w", err)
	}

	return record, nil
}

// ListRecords scans the signature prefix and filters in memory
func (b *BadgerPersistence) ListRecords(filter *persistence.RecordFilter) ([]*persistence.SignatureRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrJournalClosed
	}

	var records []*persistence.SignatureRecord

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixSignature)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			record, err := persistence.UnmarshalSignatureRecord(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal SignatureRecord, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}

			if filter.Matches(record) {
				records = append(records, record)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list SignatureRecords: %w", err)
	}

	return persistence.SortAndLimit(records, filter), nil
}

// DeleteRecord removes a record by digest
func (b *BadgerPersistence) DeleteRecord(digest string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrJournalClosed
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(recordKey(digest))
	})
}

// Close shuts down the persistence layer
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrJournalClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
