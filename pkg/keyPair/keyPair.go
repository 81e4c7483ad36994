package keyPair

import (
	"fmt"

	"github.com/Layr-Labs/near-signer-go/pkg/types"
)

// IKeyPair is a private key held in process memory.
type IKeyPair interface {
	GetPublicKey() *types.PublicKey
	Sign(data []byte) (*types.Signature, error)
	Verify(data []byte, sig *types.Signature) bool
	// String returns the secret key in "<keytype>:<base58>" form.
	String() string
}

// FromString parses a secret key string of either key type.
func FromString(secretKey string) (IKeyPair, error) {
	keyType, raw, err := types.SplitKeyString(secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secret key: %w", err)
	}
	switch keyType {
	case types.KeyTypeED25519:
		return NewED25519KeyPair(raw)
	case types.KeyTypeSECP256K1:
		return NewSECP256K1KeyPair(raw)
	default:
		return nil, fmt.Errorf("unsupported key type %s", keyType)
	}
}
