package keyPair

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/mr-tron/base58"
)

type ED25519KeyPair struct {
	privateKey ed25519.PrivateKey
	publicKey  *types.PublicKey
}

var _ IKeyPair = (*ED25519KeyPair)(nil)

// NewED25519KeyPair accepts either the 64 byte seed||public form used in key files or a bare 32 byte seed.
func NewED25519KeyPair(secret []byte) (*ED25519KeyPair, error) {
	var priv ed25519.PrivateKey
	switch len(secret) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(secret)
	case ed25519.PrivateKeySize:
		priv = ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
		if !bytes.Equal(priv[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("ed25519 secret key does not match its embedded public key")
		}
	default:
		return nil, fmt.Errorf("invalid ed25519 secret key length %d", len(secret))
	}

	pub, err := types.NewPublicKey(types.KeyTypeED25519, priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &ED25519KeyPair{privateKey: priv, publicKey: pub}, nil
}

// GetPublicKey returns a copy; writes through it do not reach the key pair.
func (kp *ED25519KeyPair) GetPublicKey() *types.PublicKey {
	pk := *kp.publicKey
	return &pk
}

func (kp *ED25519KeyPair) Sign(data []byte) (*types.Signature, error) {
	return types.NewSignature(types.KeyTypeED25519, ed25519.Sign(kp.privateKey, data))
}

func (kp *ED25519KeyPair) Verify(data []byte, sig *types.Signature) bool {
	return kp.publicKey.Verify(data, sig)
}

func (kp *ED25519KeyPair) String() string {
	return types.KeyTypeED25519.String() + ":" + base58.Encode(kp.privateKey)
}
