package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicKey = "ed25519:Anu7LYDfpLtkP7E16LT9imXF694BdQaa9ufVkQiwTQxC"

func Test_PublicKey(t *testing.T) {
	t.Run("Should parse and print the canonical form", func(t *testing.T) {
		pk, err := ParsePublicKey(testPublicKey)
		require.NoError(t, err)
		assert.Equal(t, KeyTypeED25519, pk.KeyType())
		assert.Len(t, pk.Bytes(), ED25519PublicKeyLength)
		assert.Equal(t, testPublicKey, pk.String())
	})

	t.Run("Should default to ed25519 without a prefix", func(t *testing.T) {
		pk, err := ParsePublicKey("Anu7LYDfpLtkP7E16LT9imXF694BdQaa9ufVkQiwTQxC")
		require.NoError(t, err)
		assert.Equal(t, testPublicKey, pk.String())
	})

	t.Run("Should compare by type and bytes", func(t *testing.T) {
		a := MustParsePublicKey(testPublicKey)
		b := MustParsePublicKey(testPublicKey)
		assert.True(t, a.Equals(b))

		raw := a.Bytes()
		raw[0] ^= 0x01
		c, err := NewPublicKey(KeyTypeED25519, raw)
		require.NoError(t, err)
		assert.False(t, a.Equals(c))

		secp, err := NewPublicKey(KeyTypeSECP256K1, append(a.Bytes(), a.Bytes()...))
		require.NoError(t, err)
		assert.False(t, a.Equals(secp))
		assert.False(t, a.Equals(nil))
	})

	t.Run("Should reject wrong lengths and unknown types", func(t *testing.T) {
		_, err := NewPublicKey(KeyTypeSECP256K1, make([]byte, 32))
		require.Error(t, err)
		_, err = NewPublicKey(KeyType(9), make([]byte, 32))
		require.Error(t, err)
		_, err = ParsePublicKey("dsa:" + base58.Encode(make([]byte, 32)))
		require.Error(t, err)
		_, err = ParsePublicKey("ed25519:")
		require.Error(t, err)
	})

	t.Run("Should marshal to its string form in JSON", func(t *testing.T) {
		pk := MustParsePublicKey(testPublicKey)
		out, err := json.Marshal(struct {
			Key PublicKey `json:"key"`
		}{Key: *pk})
		require.NoError(t, err)
		assert.JSONEq(t, `{"key":"`+testPublicKey+`"}`, string(out))

		var back struct {
			Key PublicKey `json:"key"`
		}
		require.NoError(t, json.Unmarshal(out, &back))
		assert.True(t, back.Key.Equals(pk))
	})
}

func Test_Signature(t *testing.T) {
	t.Run("Should enforce per type lengths only", func(t *testing.T) {
		_, err := NewSignature(KeyTypeED25519, make([]byte, 64))
		require.NoError(t, err)
		_, err = NewSignature(KeyTypeSECP256K1, make([]byte, 65))
		require.NoError(t, err)
		_, err = NewSignature(KeyTypeED25519, make([]byte, 65))
		require.Error(t, err)
	})

	t.Run("Should round trip its string form", func(t *testing.T) {
		raw := make([]byte, 65)
		raw[3] = 7
		sig, err := NewSignature(KeyTypeSECP256K1, raw)
		require.NoError(t, err)

		parsed, err := ParseSignature(sig.String())
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.Bytes())
		assert.Equal(t, KeyTypeSECP256K1, parsed.KeyType())
	})

	t.Run("Should not verify under a different key type", func(t *testing.T) {
		pk := MustParsePublicKey(testPublicKey)
		sig, err := NewSignature(KeyTypeSECP256K1, make([]byte, 65))
		require.NoError(t, err)
		assert.False(t, pk.Verify(make([]byte, 32), sig))
		assert.False(t, pk.Verify(make([]byte, 32), nil))
	})
}

func Test_CryptoHash(t *testing.T) {
	h, err := ParseCryptoHash("244ZQ9cgj3CQ6bWBdytfrJMuMQ1jdXLFGnr4HhvtCTnM")
	require.NoError(t, err)
	assert.Equal(t, "244ZQ9cgj3CQ6bWBdytfrJMuMQ1jdXLFGnr4HhvtCTnM", h.String())
	assert.False(t, h.IsZero())

	_, err = ParseCryptoHash(base58.Encode([]byte{1, 2, 3}))
	require.Error(t, err)
}

func Test_Actions(t *testing.T) {
	t.Run("Should reject negative amounts", func(t *testing.T) {
		_, err := NewTransferAction(big.NewInt(-1))
		require.ErrorIs(t, err, ErrInvalidAmount)
		_, err = NewStakeAction(big.NewInt(-5), *MustParsePublicKey(testPublicKey))
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Should accept the largest u128", func(t *testing.T) {
		maxU128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
		a, err := NewTransferAction(maxU128)
		require.NoError(t, err)
		assert.Equal(t, 0, a.Transfer.Deposit.Cmp(maxU128))
	})

	t.Run("Should report kinds", func(t *testing.T) {
		c := NewCreateAccountAction()
		assert.Equal(t, ActionCreateAccount, c.Kind())
		a := NewDeleteAccountAction("bob.near")
		assert.Equal(t, ActionDeleteAccount, a.Kind())
		assert.Equal(t, "DeleteAccount", a.Kind().String())
	})

	t.Run("Should reject nested delegate actions", func(t *testing.T) {
		inner := NewSignedDelegateAction(SignedDelegate{})
		d := &DelegateAction{SenderID: "a.near", ReceiverID: "b.near", Actions: []Action{inner}}
		require.ErrorIs(t, d.Validate(), ErrNestedDelegate)

		d.Actions = []Action{NewCreateAccountAction()}
		require.NoError(t, d.Validate())
	})
}

func Test_SignedMessageJSON(t *testing.T) {
	sig, err := NewSignature(KeyTypeED25519, make([]byte, 64))
	require.NoError(t, err)
	msg := SignedMessage{
		AccountID: "round-toad.testnet",
		PublicKey: *MustParsePublicKey(testPublicKey),
		Signature: *sig,
	}

	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"accountId": "round-toad.testnet",
		"publicKey": "`+testPublicKey+`",
		"signature": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=="
	}`, string(out))

	var back SignedMessage
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, msg.AccountID, back.AccountID)
	assert.True(t, back.PublicKey.Equals(&msg.PublicKey))
	assert.Equal(t, msg.Signature.Bytes(), back.Signature.Bytes())
}
