package inMemorySigner

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/keyPair"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/testutil"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InMemorySigner(t *testing.T) {
	ctx := context.Background()

	t.Run("Should expose the public key of the secret", func(t *testing.T) {
		ims, err := NewInMemorySignerFromString(testutil.TransferSecretKey, nil)
		require.NoError(t, err)

		pk, err := ims.GetPublicKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, testutil.TransferPublicKey, pk.String())
	})

	t.Run("Should keep its key when a caller edits the returned one", func(t *testing.T) {
		s, err := NewSigner(testutil.TransferSecretKey, nil)
		require.NoError(t, err)

		pk, err := s.GetPublicKey(ctx)
		require.NoError(t, err)
		pk.ED25519.Data[0] ^= 0xff

		_, _, err = s.SignTransaction(ctx, testutil.TransferTransaction(t))
		require.NoError(t, err)
	})

	t.Run("Should reject malformed secret keys", func(t *testing.T) {
		_, err := NewInMemorySignerFromString("ed25519:not-base58-0OIl", nil)
		require.Error(t, err)

		_, err = NewInMemorySignerFromString("rsa:abc", nil)
		require.Error(t, err)
	})

	t.Run("Should refuse to sign on a cancelled context", func(t *testing.T) {
		ims, err := NewInMemorySignerFromString(testutil.TransferSecretKey, nil)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = ims.Sign(cancelled, make([]byte, 32))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func Test_NewSigner(t *testing.T) {
	ctx := context.Background()

	t.Run("Should produce the known transfer signature", func(t *testing.T) {
		s, err := NewSigner(testutil.TransferSecretKey, nil)
		require.NoError(t, err)

		digest, stx, err := s.SignTransaction(ctx, testutil.TransferTransaction(t))
		require.NoError(t, err)
		assert.Equal(t, testutil.TransferDigest, digest.String())
		assert.Equal(t, testutil.TransferSignatureBase64, base64.StdEncoding.EncodeToString(stx.Signature.Bytes()))

		data, err := encoding.EncodeSignedTransaction(stx)
		require.NoError(t, err)
		assert.Equal(t, testutil.MustDecodeHex(t, testutil.TransferSignedTransactionHex), data)
	})

	t.Run("Should produce the known NEP-413 signature", func(t *testing.T) {
		s, err := NewSigner(testutil.Nep413SecretKey, nil)
		require.NoError(t, err)

		_, msg, err := s.SignNep413Message(ctx, testutil.Nep413AccountID, testutil.Nep413Params(t, false))
		require.NoError(t, err)
		assert.Equal(t, testutil.Nep413SignatureBase64, base64.StdEncoding.EncodeToString(msg.Signature.Bytes()))
		assert.Equal(t, testutil.Nep413PublicKey, msg.PublicKey.String())
	})

	t.Run("Should refuse a transaction declaring another key", func(t *testing.T) {
		s, err := NewSigner(testutil.Nep413SecretKey, nil)
		require.NoError(t, err)

		_, stx, err := s.SignTransaction(ctx, testutil.TransferTransaction(t))
		require.ErrorIs(t, err, signer.ErrKeyMismatch)
		assert.Nil(t, stx)
	})

	t.Run("Should sign a delegate action with a secp256k1 key", func(t *testing.T) {
		priv, err := crypto.GenerateKey()
		require.NoError(t, err)
		kp, err := keyPair.NewSECP256K1KeyPairFromECDSA(priv)
		require.NoError(t, err)

		s, err := NewSigner(kp.String(), nil)
		require.NoError(t, err)
		pk, err := s.GetPublicKey(ctx)
		require.NoError(t, err)
		require.Equal(t, types.KeyTypeSECP256K1, pk.KeyType())

		digest, sd, err := s.SignDelegateAction(ctx, testutil.SampleDelegateAction(t, *pk))
		require.NoError(t, err)
		assert.Equal(t, types.KeyTypeSECP256K1, sd.Signature.KeyType())
		assert.Len(t, sd.Signature.Bytes(), types.SECP256K1SignatureLength)
		assert.True(t, pk.Verify(digest[:], &sd.Signature))
	})
}
