package nep413

import (
	"errors"
	"fmt"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/Layr-Labs/near-signer-go/pkg/util"
	"github.com/near/borsh-go"
)

// Tag is 2^31 + 413. The high bit keeps the payload from ever parsing as a
// transaction, and 413 ties it to the standard.
const Tag uint32 = 1<<31 + 413

var ErrInvalidNonce = errors.New("invalid nonce")

// InvalidNonceError reports a nonce that is not exactly 32 bytes.
type InvalidNonceError struct {
	Length int
}

func (e *InvalidNonceError) Error() string {
	return fmt.Sprintf("nonce must be %d bytes, got %d", types.NonceLength, e.Length)
}

func (e *InvalidNonceError) Is(target error) bool {
	return target == ErrInvalidNonce
}

// payload is the serialized form of the request. Field order is fixed by the standard.
type payload struct {
	Message     string
	Nonce       [types.NonceLength]byte
	Recipient   string
	CallbackURL *string
}

// BuildPayload returns tag || borsh(message, nonce, recipient, callbackUrl).
func BuildPayload(params *types.SignMessageParams) ([]byte, error) {
	if params == nil {
		return nil, fmt.Errorf("sign message params are required")
	}
	if len(params.Nonce) != types.NonceLength {
		return nil, &InvalidNonceError{Length: len(params.Nonce)}
	}

	p := payload{
		Message:     params.Message,
		Recipient:   params.Recipient,
		CallbackURL: params.CallbackURL,
	}
	copy(p.Nonce[:], params.Nonce)

	body, err := borsh.Serialize(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message payload: %w", err)
	}
	return append(encoding.EncodeU32(Tag), body...), nil
}

// HashPayload returns the sha256 digest that is signed for params.
func HashPayload(params *types.SignMessageParams) (types.CryptoHash, error) {
	data, err := BuildPayload(params)
	if err != nil {
		return types.CryptoHash{}, err
	}
	return util.Sha256(data), nil
}

// VerifySignedMessage rebuilds the digest for params and checks the signature against
// the public key carried by signed. It does not check that the key belongs to the account.
func VerifySignedMessage(signed *types.SignedMessage, params *types.SignMessageParams) (bool, error) {
	if signed == nil {
		return false, fmt.Errorf("signed message is required")
	}
	digest, err := HashPayload(params)
	if err != nil {
		return false, err
	}
	return signed.PublicKey.Verify(digest[:], &signed.Signature), nil
}
