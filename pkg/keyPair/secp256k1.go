package keyPair

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

type SECP256K1KeyPair struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *types.PublicKey
}

var _ IKeyPair = (*SECP256K1KeyPair)(nil)

// NewSECP256K1KeyPair parses a 32 byte private scalar.
func NewSECP256K1KeyPair(secret []byte) (*SECP256K1KeyPair, error) {
	priv, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 secret key: %w", err)
	}
	return NewSECP256K1KeyPairFromECDSA(priv)
}

func NewSECP256K1KeyPairFromECDSA(priv *ecdsa.PrivateKey) (*SECP256K1KeyPair, error) {
	if priv == nil {
		return nil, fmt.Errorf("private key is required")
	}
	// drop the 0x04 uncompressed point marker
	raw := crypto.FromECDSAPub(&priv.PublicKey)[1:]
	pub, err := types.NewPublicKey(types.KeyTypeSECP256K1, raw)
	if err != nil {
		return nil, err
	}
	return &SECP256K1KeyPair{privateKey: priv, publicKey: pub}, nil
}

// GetPublicKey returns a copy; writes through it do not reach the key pair.
func (kp *SECP256K1KeyPair) GetPublicKey() *types.PublicKey {
	pk := *kp.publicKey
	return &pk
}

// Sign signs a 32 byte digest and returns r || s || v with v in {0, 1}.
func (kp *SECP256K1KeyPair) Sign(data []byte) (*types.Signature, error) {
	if len(data) != types.CryptoHashLength {
		return nil, fmt.Errorf("secp256k1 signs 32 byte digests, got %d bytes", len(data))
	}
	sig, err := crypto.Sign(data, kp.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return types.NewSignature(types.KeyTypeSECP256K1, sig)
}

func (kp *SECP256K1KeyPair) Verify(data []byte, sig *types.Signature) bool {
	return kp.publicKey.Verify(data, sig)
}

func (kp *SECP256K1KeyPair) String() string {
	return types.KeyTypeSECP256K1.String() + ":" + base58.Encode(crypto.FromECDSA(kp.privateKey))
}
