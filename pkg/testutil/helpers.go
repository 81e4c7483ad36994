package testutil

import (
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"pgregory.net/rapid"
)

// Transfer vector: 1 yoctoNEAR from test.near to whatever.near.
const (
	TransferSecretKey            = "ed25519:3hoMW1HvnRLSFCLZnvPzWeoGwtdHzke34B2cTHM8rhcbG3TbuLKtShTv3DvyejnXKXKBiV7YPkLeqUHN1ghnqpFv"
	TransferPublicKey            = "ed25519:Anu7LYDfpLtkP7E16LT9imXF694BdQaa9ufVkQiwTQxC"
	TransferSignerID             = "test.near"
	TransferReceiverID           = "whatever.near"
	TransferBlockHash            = "244ZQ9cgj3CQ6bWBdytfrJMuMQ1jdXLFGnr4HhvtCTnM"
	TransferDigestHex            = "eea6e680f3ea51a7f667e9a801d0bfadf66e03d41ed54975b3c6006351461b32"
	TransferDigest               = "H4be6ioGzDeiGKork27na6Usw2Hzt4gNJfetJ7ag3LhP"
	TransferSignatureBase64      = "lpqDMyGG7pdV5IOTJVJYBuGJo9LSu0tHYOlEQ+l+HE8i3u7wBZqOlxMQDtpuGRRNp+ig735TmyBwi6HY0CG9AQ=="
	TransferSignedTransactionHex = "09000000746573742e6e65617200917b3d268d4b58f7fec1b150bd68d69be3ee5d4cc39855e341538465bb77860d01000000000000000d00000077686174657665722e6e6561720fa473fd26901df296be6adc4cc4df34d040efa2435224b6986910e630c2fef601000000030100000000000000000000000000000000969a83332186ee9755e4839325525806e189a3d2d2bb4b4760e94443e97e1c4f22deeef0059a8e9713100eda6e19144da7e8a0ef7e539b20708ba1d8d021bd01"
)

// NEP-413 vector as produced by wallet implementations for round-toad.testnet.
const (
	Nep413SecretKey                   = "ed25519:3FyRtUUMxiNT1g2ST6mbj7W1CN7KfQBbomawC7YG4A1zwHmw2TRsn1Wc8NaFcBCoJDu3zt3znJDSwKQ31oRaKXH7"
	Nep413PublicKey                   = "ed25519:2RM3EotCzEiVobm6aMjaup43k8cFffR4KHFtrqbZ79Qy"
	Nep413AccountID                   = "round-toad.testnet"
	Nep413Message                     = "Hello NEAR!"
	Nep413NonceBase64                 = "KNV0cOpvJ50D5vfF9pqWom8wo2sliQ4W+Wa7uZ3Uk6Y="
	Nep413Recipient                   = "example.near"
	Nep413CallbackURL                 = "http://localhost:3000"
	Nep413SignatureBase64             = "NnJgPU1Ql7ccRTITIoOVsIfElmvH1RV7QAT4a9Vh6ShCOnjIzRwxqX54JzoQ/nK02p7VBMI2vJn48rpImIJwAw=="
	Nep413SignatureWithCallbackBase64 = "zzZQ/GwAjrZVrTIFlvmmQbDQHllfzrr8urVWHaRt5cPfcXaCSZo35c5LDpPpTKivR6BxLyb3lcPM0FfCW5lcBQ=="
	Nep413DigestHex                   = "036a114cfadb42200dc972aff40b994039571359cbcdd34be9c097d472351038"
	Nep413DigestWithCallbackHex       = "ca89aebc4b822cb0618aa785dca563acee228e2631cff9adb7ce44989c5e8874"
)

// TransferTransaction builds the unsigned transaction of the transfer vector.
func TransferTransaction(t testing.TB) *types.Transaction {
	t.Helper()
	blockHash, err := types.ParseCryptoHash(TransferBlockHash)
	if err != nil {
		t.Fatalf("Failed to parse block hash: %v", err)
	}
	transfer, err := types.NewTransferAction(big.NewInt(1))
	if err != nil {
		t.Fatalf("Failed to build transfer: %v", err)
	}
	return &types.Transaction{
		SignerID:   TransferSignerID,
		PublicKey:  *types.MustParsePublicKey(TransferPublicKey),
		Nonce:      1,
		ReceiverID: TransferReceiverID,
		BlockHash:  blockHash,
		Actions:    []types.Action{transfer},
	}
}

// Nep413Params builds the NEP-413 vector request, optionally with the callback url.
func Nep413Params(t testing.TB, withCallback bool) *types.SignMessageParams {
	t.Helper()
	params := &types.SignMessageParams{
		Message:   Nep413Message,
		Nonce:     MustDecodeBase64(t, Nep413NonceBase64),
		Recipient: Nep413Recipient,
	}
	if withCallback {
		cb := Nep413CallbackURL
		params.CallbackURL = &cb
	}
	return params
}

func MustDecodeBase64(t testing.TB, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("Failed to decode base64 %q: %v", s, err)
	}
	return b
}

func MustDecodeHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("Failed to decode hex %q: %v", s, err)
	}
	return b
}

// SampleDelegateAction builds a delegate action covering several action kinds.
func SampleDelegateAction(t testing.TB, publicKey types.PublicKey) *types.DelegateAction {
	t.Helper()
	call, err := types.NewFunctionCallAction("ft_transfer", []byte(`{"receiver_id":"bob.near","amount":"10"}`), 30_000_000_000_000, big.NewInt(1))
	if err != nil {
		t.Fatalf("Failed to build function call: %v", err)
	}
	transfer, err := types.NewTransferAction(new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil))
	if err != nil {
		t.Fatalf("Failed to build transfer: %v", err)
	}
	return &types.DelegateAction{
		SenderID:       "alice.near",
		ReceiverID:     "token.near",
		Actions:        []types.Action{call, transfer},
		Nonce:          42,
		MaxBlockHeight: 1_000_000,
		PublicKey:      publicKey,
	}
}

func publicKeyGen() *rapid.Generator[types.PublicKey] {
	return rapid.Custom(func(t *rapid.T) types.PublicKey {
		if rapid.Bool().Draw(t, "secp256k1") {
			pk, _ := types.NewPublicKey(types.KeyTypeSECP256K1, rapid.SliceOfN(rapid.Byte(), 64, 64).Draw(t, "secpKey"))
			return *pk
		}
		pk, _ := types.NewPublicKey(types.KeyTypeED25519, rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "edKey"))
		return *pk
	})
}

func signatureGen() *rapid.Generator[types.Signature] {
	return rapid.Custom(func(t *rapid.T) types.Signature {
		if rapid.Bool().Draw(t, "secp256k1") {
			sig, _ := types.NewSignature(types.KeyTypeSECP256K1, rapid.SliceOfN(rapid.Byte(), 65, 65).Draw(t, "secpSig"))
			return *sig
		}
		sig, _ := types.NewSignature(types.KeyTypeED25519, rapid.SliceOfN(rapid.Byte(), 64, 64).Draw(t, "edSig"))
		return *sig
	})
}

func u128Gen() *rapid.Generator[*big.Int] {
	return rapid.Custom(func(t *rapid.T) *big.Int {
		hi := new(big.Int).SetUint64(rapid.Uint64().Draw(t, "hi"))
		lo := new(big.Int).SetUint64(rapid.Uint64().Draw(t, "lo"))
		return hi.Lsh(hi, 64).Or(hi, lo)
	})
}

func accountIDGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z0-9_\-]{2,20}\.(near|testnet)`)
}

// ActionGen draws any action. Delegate actions are only drawn when allowDelegate is set
// and never nest.
func ActionGen(allowDelegate bool) *rapid.Generator[types.Action] {
	return rapid.Custom(func(t *rapid.T) types.Action {
		maxKind := int(types.ActionDeleteAccount)
		if allowDelegate {
			maxKind = int(types.ActionDelegate)
		}
		var (
			action types.Action
			err    error
		)
		switch types.ActionKind(rapid.IntRange(0, maxKind).Draw(t, "kind")) {
		case types.ActionCreateAccount:
			action = types.NewCreateAccountAction()
		case types.ActionDeployContract:
			action = types.NewDeployContractAction(rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "code"))
		case types.ActionFunctionCall:
			action, err = types.NewFunctionCallAction(
				rapid.StringN(1, 32, 128).Draw(t, "method"),
				rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "args"),
				rapid.Uint64().Draw(t, "gas"),
				u128Gen().Draw(t, "deposit"),
			)
		case types.ActionTransfer:
			action, err = types.NewTransferAction(u128Gen().Draw(t, "deposit"))
		case types.ActionStake:
			action, err = types.NewStakeAction(u128Gen().Draw(t, "stake"), publicKeyGen().Draw(t, "stakeKey"))
		case types.ActionAddKey:
			if rapid.Bool().Draw(t, "fullAccess") {
				action = types.NewAddFullAccessKeyAction(publicKeyGen().Draw(t, "addKey"), rapid.Uint64().Draw(t, "keyNonce"))
			} else {
				var allowance *big.Int
				if rapid.Bool().Draw(t, "hasAllowance") {
					allowance = u128Gen().Draw(t, "allowance")
				}
				action, err = types.NewAddFunctionCallKeyAction(
					publicKeyGen().Draw(t, "addKey"),
					rapid.Uint64().Draw(t, "keyNonce"),
					allowance,
					accountIDGen().Draw(t, "keyReceiver"),
					rapid.SliceOfN(rapid.StringN(1, 16, 64), 1, 4).Draw(t, "methods"),
				)
			}
		case types.ActionDeleteKey:
			action = types.NewDeleteKeyAction(publicKeyGen().Draw(t, "deleteKey"))
		case types.ActionDeleteAccount:
			action = types.NewDeleteAccountAction(accountIDGen().Draw(t, "beneficiary"))
		case types.ActionDelegate:
			action = types.NewSignedDelegateAction(types.SignedDelegate{
				DelegateAction: *DelegateActionGen().Draw(t, "delegate"),
				Signature:      signatureGen().Draw(t, "delegateSig"),
			})
		}
		if err != nil {
			t.Fatalf("failed to build action: %v", err)
		}
		return action
	})
}

// TransactionGen draws arbitrary well-formed transactions.
func TransactionGen() *rapid.Generator[*types.Transaction] {
	return rapid.Custom(func(t *rapid.T) *types.Transaction {
		var blockHash types.CryptoHash
		copy(blockHash[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "blockHash"))
		return &types.Transaction{
			SignerID:   accountIDGen().Draw(t, "signer"),
			PublicKey:  publicKeyGen().Draw(t, "publicKey"),
			Nonce:      rapid.Uint64().Draw(t, "nonce"),
			ReceiverID: accountIDGen().Draw(t, "receiver"),
			BlockHash:  blockHash,
			Actions:    rapid.SliceOfN(ActionGen(true), 1, 4).Draw(t, "actions"),
		}
	})
}

// DelegateActionGen draws delegate actions that never nest.
func DelegateActionGen() *rapid.Generator[*types.DelegateAction] {
	return rapid.Custom(func(t *rapid.T) *types.DelegateAction {
		return &types.DelegateAction{
			SenderID:       accountIDGen().Draw(t, "sender"),
			ReceiverID:     accountIDGen().Draw(t, "receiver"),
			Actions:        rapid.SliceOfN(ActionGen(false), 1, 4).Draw(t, "actions"),
			Nonce:          rapid.Uint64().Draw(t, "nonce"),
			MaxBlockHeight: rapid.Uint64().Draw(t, "maxBlockHeight"),
			PublicKey:      publicKeyGen().Draw(t, "publicKey"),
		}
	})
}

// SignatureGen draws a signature of either type with arbitrary bytes.
func SignatureGen() *rapid.Generator[types.Signature] {
	return signatureGen()
}
