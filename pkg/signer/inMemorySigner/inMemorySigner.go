package inMemorySigner

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/near-signer-go/pkg/keyPair"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"go.uber.org/zap"
)

// InMemorySigner holds a secret key in process memory.
type InMemorySigner struct {
	logger  *zap.Logger
	keyPair keyPair.IKeyPair
}

var _ signer.IKeySigner = (*InMemorySigner)(nil)

// NewInMemorySignerFromString parses a "<keytype>:<base58>" secret key.
func NewInMemorySignerFromString(
	secretKey string,
	logger *zap.Logger,
) (*InMemorySigner, error) {
	kp, err := keyPair.FromString(secretKey)
	if err != nil {
		return nil, fmt.Errorf("error loading secret key: %w", err)
	}
	return NewInMemorySigner(kp, logger), nil
}

func NewInMemorySigner(
	kp keyPair.IKeyPair,
	logger *zap.Logger,
) *InMemorySigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemorySigner{
		logger:  logger,
		keyPair: kp,
	}
}

func (ims *InMemorySigner) GetPublicKey(_ context.Context) (*types.PublicKey, error) {
	return ims.keyPair.GetPublicKey(), nil
}

// data is the 32 byte digest to sign
func (ims *InMemorySigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := ims.keyPair.Sign(data)
	if err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}

// NewSigner builds a full signer around an in-memory secret key.
func NewSigner(secretKey string, logger *zap.Logger) (*signer.Signer, error) {
	ims, err := NewInMemorySignerFromString(secretKey, logger)
	if err != nil {
		return nil, err
	}
	return signer.NewSigner(ims, nil, logger), nil
}
