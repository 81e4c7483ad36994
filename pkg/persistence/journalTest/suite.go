// Package journalTest holds the behaviour every ISignatureJournal backend shares.
package journalTest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty journal for one subtest.
type Factory func(t *testing.T) persistence.ISignatureJournal

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// NewRecord builds a valid record whose digest and timestamp derive from i.
func NewRecord(i int, kind persistence.ArtifactKind, signerId string) *persistence.SignatureRecord {
	return &persistence.SignatureRecord{
		Id:        uuid.NewString(),
		Kind:      kind,
		Digest:    fmt.Sprintf("digest-%04d", i),
		SignerId:  signerId,
		PublicKey: "ed25519:Anu7LYDfpLtkP7E16LT9imXF694BdQaa9ufVkQiwTQxC",
		Receiver:  "receiver.near",
		Nonce:     uint64(i),
		Artifact:  []byte{byte(i), 0x01, 0x02},
		CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
	}
}

// RunJournalSuite exercises the journal contract against a backend.
func RunJournalSuite(t *testing.T, open Factory) {
	t.Run("Should save and load a record", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		record := NewRecord(1, persistence.ArtifactKindTransaction, "test.near")
		require.NoError(t, j.SaveRecord(record))

		loaded, err := j.LoadRecord(record.Digest)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, record.Id, loaded.Id)
		assert.Equal(t, record.Kind, loaded.Kind)
		assert.Equal(t, record.SignerId, loaded.SignerId)
		assert.Equal(t, record.Nonce, loaded.Nonce)
		assert.Equal(t, record.Artifact, loaded.Artifact)
		assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Should return nil for a missing record", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		loaded, err := j.LoadRecord("missing")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("Should reject nil and invalid records", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		err := j.SaveRecord(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil SignatureRecord")

		bad := NewRecord(2, "blob", "test.near")
		require.Error(t, j.SaveRecord(bad))
	})

	t.Run("Should overwrite a record with the same digest", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		first := NewRecord(3, persistence.ArtifactKindMessage, "test.near")
		require.NoError(t, j.SaveRecord(first))
		second := NewRecord(3, persistence.ArtifactKindMessage, "test.near")
		require.NoError(t, j.SaveRecord(second))

		loaded, err := j.LoadRecord(first.Digest)
		require.NoError(t, err)
		assert.Equal(t, second.Id, loaded.Id)

		all, err := j.ListRecords(nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Should not leak mutations of saved records", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		record := NewRecord(4, persistence.ArtifactKindTransaction, "test.near")
		require.NoError(t, j.SaveRecord(record))
		record.Artifact[0] = 0xff

		loaded, err := j.LoadRecord(record.Digest)
		require.NoError(t, err)
		assert.Equal(t, byte(4), loaded.Artifact[0])
	})

	t.Run("Should list records oldest first with filters", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		require.NoError(t, j.SaveRecord(NewRecord(12, persistence.ArtifactKindDelegate, "alice.near")))
		require.NoError(t, j.SaveRecord(NewRecord(10, persistence.ArtifactKindTransaction, "alice.near")))
		require.NoError(t, j.SaveRecord(NewRecord(11, persistence.ArtifactKindTransaction, "bob.near")))
		require.NoError(t, j.SaveRecord(NewRecord(13, persistence.ArtifactKindTransaction, "alice.near")))

		all, err := j.ListRecords(nil)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "digest-0010", all[0].Digest)
		assert.Equal(t, "digest-0013", all[3].Digest)

		txs, err := j.ListRecords(&persistence.RecordFilter{Kind: persistence.ArtifactKindTransaction, SignerId: "alice.near"})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, "digest-0010", txs[0].Digest)
		assert.Equal(t, "digest-0013", txs[1].Digest)

		latest, err := j.ListRecords(&persistence.RecordFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, "digest-0013", latest[0].Digest)
	})

	t.Run("Should return an empty list when nothing is stored", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		records, err := j.ListRecords(nil)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("Should delete idempotently", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		record := NewRecord(5, persistence.ArtifactKindDelegate, "alice.near")
		require.NoError(t, j.SaveRecord(record))
		require.NoError(t, j.DeleteRecord(record.Digest))
		require.NoError(t, j.DeleteRecord(record.Digest))

		loaded, err := j.LoadRecord(record.Digest)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		records, err := j.ListRecords(nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Should fail every operation after close", func(t *testing.T) {
		j := open(t)
		require.NoError(t, j.HealthCheck())
		require.NoError(t, j.Close())
		require.NoError(t, j.Close())

		record := NewRecord(6, persistence.ArtifactKindTransaction, "test.near")
		assert.ErrorIs(t, j.SaveRecord(record), persistence.ErrJournalClosed)
		_, err := j.LoadRecord(record.Digest)
		assert.ErrorIs(t, err, persistence.ErrJournalClosed)
		_, err = j.ListRecords(nil)
		assert.ErrorIs(t, err, persistence.ErrJournalClosed)
		assert.ErrorIs(t, j.DeleteRecord(record.Digest), persistence.ErrJournalClosed)
		assert.ErrorIs(t, j.HealthCheck(), persistence.ErrJournalClosed)
	})

	t.Run("Should handle concurrent writers", func(t *testing.T) {
		j := open(t)
		defer func() { _ = j.Close() }()

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- j.SaveRecord(NewRecord(100+i, persistence.ArtifactKindTransaction, "test.near"))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		records, err := j.ListRecords(nil)
		require.NoError(t, err)
		assert.Len(t, records, 20)
	})
}
