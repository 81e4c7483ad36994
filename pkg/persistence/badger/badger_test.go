package badger

import (
	"testing"

	"github.com/Layr-Labs/near-signer-go/pkg/logger"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence/journalTest"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBadgerPersistence(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	journalTest.RunJournalSuite(t, func(t *testing.T) persistence.ISignatureJournal {
		bp, err := NewBadgerPersistence(t.TempDir(), testLogger)
		require.NoError(t, err)
		return bp
	})
}

func TestBadgerPersistence_SurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bp, err := NewBadgerPersistence(tmpDir, testLogger)
	require.NoError(t, err)

	record := journalTest.NewRecord(1, persistence.ArtifactKindTransaction, "test.near")
	require.NoError(t, bp.SaveRecord(record))
	require.NoError(t, bp.Close())

	reopened, err := NewBadgerPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadRecord(record.Digest)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, record.Id, loaded.Id)
}

func TestBadgerPersistence_RejectsUnknownSchema(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := badgerdb.Open(badgerdb.DefaultOptions(tmpDir).WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySchemaVersion), []byte("v0"))
	}))
	require.NoError(t, db.Close())

	_, err = NewBadgerPersistence(tmpDir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestBadgerPersistence_SkipsCorruptRecords(t *testing.T) {
	bp, err := NewBadgerPersistence(t.TempDir(), nil)
	require.NoError(t, err)
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.SaveRecord(journalTest.NewRecord(1, persistence.ArtifactKindMessage, "test.near")))
	require.NoError(t, bp.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(recordKey("garbage"), []byte("{not json"))
	}))

	records, err := bp.ListRecords(nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBadgerLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newBadgerLogger(zap.New(core))

	l.Infof("Compacting level %d\n", 2)
	l.Warningf("Value log %s is large\n", "000001.vlog")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "Compacting level 2", entries[0].Message)
	assert.Equal(t, "badger", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
