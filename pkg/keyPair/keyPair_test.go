package keyPair

import (
	"crypto/sha256"
	"testing"

	"github.com/Layr-Labs/near-signer-go/pkg/testutil"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ED25519KeyPair(t *testing.T) {
	t.Run("Should derive the known public key from a secret key string", func(t *testing.T) {
		kp, err := FromString(testutil.TransferSecretKey)
		require.NoError(t, err)
		assert.Equal(t, testutil.TransferPublicKey, kp.GetPublicKey().String())
		assert.Equal(t, testutil.TransferSecretKey, kp.String())
	})

	t.Run("Should reproduce the known signature over a digest", func(t *testing.T) {
		kp, err := FromString(testutil.TransferSecretKey)
		require.NoError(t, err)

		digest := testutil.MustDecodeHex(t, testutil.TransferDigestHex)
		sig, err := kp.Sign(digest)
		require.NoError(t, err)

		assert.Equal(t, types.KeyTypeED25519, sig.KeyType())
		assert.Equal(t, testutil.MustDecodeBase64(t, testutil.TransferSignatureBase64), sig.Bytes())
		assert.True(t, kp.Verify(digest, sig))

		digest[0] ^= 0xff
		assert.False(t, kp.Verify(digest, sig))
	})

	t.Run("Should hand out copies of the public key", func(t *testing.T) {
		kp, err := FromString(testutil.TransferSecretKey)
		require.NoError(t, err)

		pk := kp.GetPublicKey()
		pk.ED25519.Data[0] ^= 0xff
		assert.Equal(t, testutil.TransferPublicKey, kp.GetPublicKey().String())

		digest := testutil.MustDecodeHex(t, testutil.TransferDigestHex)
		sig, err := kp.Sign(digest)
		require.NoError(t, err)
		assert.True(t, kp.Verify(digest, sig))
	})

	t.Run("Should accept a bare 32 byte seed", func(t *testing.T) {
		_, raw, err := types.SplitKeyString(testutil.TransferSecretKey)
		require.NoError(t, err)

		kp, err := NewED25519KeyPair(raw[:32])
		require.NoError(t, err)
		assert.Equal(t, testutil.TransferPublicKey, kp.GetPublicKey().String())
	})

	t.Run("Should reject a secret whose public half does not match", func(t *testing.T) {
		_, raw, err := types.SplitKeyString(testutil.TransferSecretKey)
		require.NoError(t, err)
		raw[40] ^= 0x01

		_, err = NewED25519KeyPair(raw)
		require.Error(t, err)
	})

	t.Run("Should reject bad lengths", func(t *testing.T) {
		_, err := FromString("ed25519:" + base58.Encode(make([]byte, 16)))
		require.Error(t, err)
	})
}

func Test_SECP256K1KeyPair(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	kp, err := NewSECP256K1KeyPairFromECDSA(priv)
	require.NoError(t, err)

	t.Run("Should expose the 64 byte uncompressed public key", func(t *testing.T) {
		pk := kp.GetPublicKey()
		assert.Equal(t, types.KeyTypeSECP256K1, pk.KeyType())
		assert.Len(t, pk.Bytes(), 64)
		assert.Equal(t, crypto.FromECDSAPub(&priv.PublicKey)[1:], pk.Bytes())
	})

	t.Run("Should produce recoverable r||s||v signatures", func(t *testing.T) {
		digest := sha256.Sum256([]byte("payload"))
		sig, err := kp.Sign(digest[:])
		require.NoError(t, err)

		raw := sig.Bytes()
		require.Len(t, raw, 65)
		assert.Contains(t, []byte{0, 1}, raw[64])

		recovered, err := crypto.Ecrecover(digest[:], raw)
		require.NoError(t, err)
		assert.Equal(t, kp.GetPublicKey().Bytes(), recovered[1:])
		assert.True(t, kp.Verify(digest[:], sig))
	})

	t.Run("Should only sign 32 byte digests", func(t *testing.T) {
		_, err := kp.Sign([]byte("not a digest"))
		require.Error(t, err)
	})

	t.Run("Should round trip through its secret key string", func(t *testing.T) {
		parsed, err := FromString(kp.String())
		require.NoError(t, err)
		assert.True(t, parsed.GetPublicKey().Equals(kp.GetPublicKey()))
	})

	t.Run("Should not verify against an ed25519 key", func(t *testing.T) {
		digest := sha256.Sum256([]byte("payload"))
		sig, err := kp.Sign(digest[:])
		require.NoError(t, err)

		ed, err := FromString(testutil.TransferSecretKey)
		require.NoError(t, err)
		assert.False(t, ed.Verify(digest[:], sig))
	})
}

func Test_FromString(t *testing.T) {
	t.Run("Should reject unknown key types", func(t *testing.T) {
		_, err := FromString("rsa:abc")
		require.Error(t, err)
	})

	t.Run("Should reject invalid base58", func(t *testing.T) {
		_, err := FromString("ed25519:0OIl")
		require.Error(t, err)
	})
}
