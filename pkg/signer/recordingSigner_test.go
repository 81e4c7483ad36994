package signer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence/memory"
	"github.com/Layr-Labs/near-signer-go/pkg/testutil"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// failingJournal refuses every write.
type failingJournal struct {
	*memory.MemoryPersistence
}

func (f *failingJournal) SaveRecord(*persistence.SignatureRecord) error {
	return errors.New("disk full")
}

func Test_RecordingSigner(t *testing.T) {
	ctx := context.Background()

	newRecording := func(t *testing.T, secretKey string, journal persistence.ISignatureJournal) *RecordingSigner {
		inner := NewSigner(newSpySigner(t, secretKey), nil, zaptest.NewLogger(t))
		return NewRecordingSigner(inner, journal, zaptest.NewLogger(t))
	}

	t.Run("Should journal a signed transaction", func(t *testing.T) {
		journal := memory.NewMemoryPersistence()
		s := newRecording(t, testutil.TransferSecretKey, journal)

		digest, stx, err := s.SignTransaction(ctx, testutil.TransferTransaction(t))
		require.NoError(t, err)

		record, err := journal.LoadRecord(digest.String())
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, persistence.ArtifactKindTransaction, record.Kind)
		assert.Equal(t, testutil.TransferSignerID, record.SignerId)
		assert.Equal(t, testutil.TransferReceiverID, record.Receiver)
		assert.Equal(t, testutil.TransferPublicKey, record.PublicKey)
		assert.Equal(t, uint64(1), record.Nonce)
		assert.NotEmpty(t, record.Id)
		assert.False(t, record.CreatedAt.IsZero())

		decoded, err := encoding.DecodeSignedTransaction(record.Artifact)
		require.NoError(t, err)
		assert.Equal(t, stx.Signature.Bytes(), decoded.Signature.Bytes())
	})

	t.Run("Should journal a signed delegate", func(t *testing.T) {
		journal := memory.NewMemoryPersistence()
		s := newRecording(t, testutil.TransferSecretKey, journal)
		pk := *types.MustParsePublicKey(testutil.TransferPublicKey)

		digest, _, err := s.SignDelegateAction(ctx, testutil.SampleDelegateAction(t, pk))
		require.NoError(t, err)

		record, err := journal.LoadRecord(digest.String())
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, persistence.ArtifactKindDelegate, record.Kind)
		assert.Equal(t, "alice.near", record.SignerId)
		assert.Equal(t, uint64(42), record.Nonce)

		decoded, err := encoding.DecodeSignedDelegate(record.Artifact)
		require.NoError(t, err)
		assert.Equal(t, "token.near", decoded.DelegateAction.ReceiverID)
	})

	t.Run("Should journal a signed message as JSON", func(t *testing.T) {
		journal := memory.NewMemoryPersistence()
		s := newRecording(t, testutil.Nep413SecretKey, journal)

		digest, _, err := s.SignNep413Message(ctx, testutil.Nep413AccountID, testutil.Nep413Params(t, false))
		require.NoError(t, err)
		assert.Equal(t, testutil.Nep413DigestHex, hex.EncodeToString(digest[:]))

		record, err := journal.LoadRecord(digest.String())
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, persistence.ArtifactKindMessage, record.Kind)
		assert.Equal(t, testutil.Nep413Recipient, record.Receiver)

		var msg types.SignedMessage
		require.NoError(t, json.Unmarshal(record.Artifact, &msg))
		assert.Equal(t, testutil.Nep413AccountID, msg.AccountID)
	})

	t.Run("Should withhold the artifact when the journal fails", func(t *testing.T) {
		s := newRecording(t, testutil.TransferSecretKey, &failingJournal{memory.NewMemoryPersistence()})

		_, stx, err := s.SignTransaction(ctx, testutil.TransferTransaction(t))
		require.ErrorContains(t, err, "disk full")
		assert.Nil(t, stx)
	})

	t.Run("Should not journal refused requests", func(t *testing.T) {
		journal := memory.NewMemoryPersistence()
		s := newRecording(t, testutil.Nep413SecretKey, journal)

		_, _, err := s.SignTransaction(ctx, testutil.TransferTransaction(t))
		require.ErrorIs(t, err, ErrKeyMismatch)

		records, err := journal.ListRecords(nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
