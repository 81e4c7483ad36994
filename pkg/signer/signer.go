package signer

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/nep413"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/Layr-Labs/near-signer-go/pkg/util"
	"go.uber.org/zap"
)

// IKeySigner is the key capability a Signer is built on. Implementations may hold the
// key in memory or delegate to a remote key manager.
type IKeySigner interface {
	GetPublicKey(ctx context.Context) (*types.PublicKey, error)
	// Sign returns the raw signature bytes over data, without a key type tag.
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

// ISigner signs transactions, delegate actions and off-chain messages with one key.
type ISigner interface {
	GetPublicKey(ctx context.Context) (*types.PublicKey, error)
	SignTransaction(ctx context.Context, tx *types.Transaction) (types.CryptoHash, *types.SignedTransaction, error)
	SignDelegateAction(ctx context.Context, action *types.DelegateAction) (types.CryptoHash, *types.SignedDelegate, error)
	SignNep413Message(ctx context.Context, accountID string, params *types.SignMessageParams) (types.CryptoHash, *types.SignedMessage, error)
}

// Signer hashes the canonical encoding of a payload and signs the digest with its key.
// It holds no mutable state and is safe for concurrent use.
type Signer struct {
	keySigner IKeySigner
	encoder   encoding.ICanonicalEncoder
	logger    *zap.Logger
}

var _ ISigner = (*Signer)(nil)

// NewSigner creates a Signer. A nil encoder selects the borsh encoder.
func NewSigner(keySigner IKeySigner, encoder encoding.ICanonicalEncoder, logger *zap.Logger) *Signer {
	if encoder == nil {
		encoder = encoding.NewBorshEncoder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Signer{
		keySigner: keySigner,
		encoder:   encoder,
		logger:    logger,
	}
}

func (s *Signer) GetPublicKey(ctx context.Context) (*types.PublicKey, error) {
	return s.keySigner.GetPublicKey(ctx)
}

// SignTransaction signs sha256(encode(tx)). The signature is tagged with the key type
// the transaction declares.
func (s *Signer) SignTransaction(ctx context.Context, tx *types.Transaction) (types.CryptoHash, *types.SignedTransaction, error) {
	if tx == nil {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: transaction is required", ErrInvalidRequest)
	}
	if _, err := s.requireKey(ctx, &tx.PublicKey); err != nil {
		return types.CryptoHash{}, nil, err
	}
	if err := tx.Validate(); err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	message, err := s.encoder.EncodeTransaction(tx)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	digest := util.Sha256(message)

	sig, err := s.signDigest(ctx, digest, tx.PublicKey.KeyType())
	if err != nil {
		return types.CryptoHash{}, nil, err
	}

	s.logger.Sugar().Debugw("Signed transaction",
		"signer_id", tx.SignerID,
		"receiver_id", tx.ReceiverID,
		"nonce", tx.Nonce,
		"actions", len(tx.Actions),
		"digest", digest.String(),
	)
	return digest, &types.SignedTransaction{Transaction: *tx, Signature: *sig}, nil
}

// SignDelegateAction signs sha256(prefix || encode(action)) and returns that digest. The
// signature is tagged with the signer's own key type, which is how relayed delegate
// actions are checked on-chain.
func (s *Signer) SignDelegateAction(ctx context.Context, action *types.DelegateAction) (types.CryptoHash, *types.SignedDelegate, error) {
	if action == nil {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: delegate action is required", ErrInvalidRequest)
	}
	held, err := s.requireKey(ctx, &action.PublicKey)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	if err := action.Validate(); err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	message, err := s.encoder.EncodeDelegateAction(action)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("failed to encode delegate action: %w", err)
	}
	digest := util.Sha256(message)

	sig, err := s.signDigest(ctx, digest, held.KeyType())
	if err != nil {
		return types.CryptoHash{}, nil, err
	}

	s.logger.Sugar().Debugw("Signed delegate action",
		"sender_id", action.SenderID,
		"receiver_id", action.ReceiverID,
		"nonce", action.Nonce,
		"max_block_height", action.MaxBlockHeight,
		"digest", digest.String(),
	)
	return digest, &types.SignedDelegate{DelegateAction: *action, Signature: *sig}, nil
}

// SignNep413Message signs the NEP-413 digest of params on behalf of accountID.
func (s *Signer) SignNep413Message(ctx context.Context, accountID string, params *types.SignMessageParams) (types.CryptoHash, *types.SignedMessage, error) {
	if accountID == "" {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: account id is required", ErrInvalidRequest)
	}
	digest, err := nep413.HashPayload(params)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}

	held, err := s.keySigner.GetPublicKey(ctx)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("failed to get public key: %w", err)
	}
	sig, err := s.signDigest(ctx, digest, held.KeyType())
	if err != nil {
		return types.CryptoHash{}, nil, err
	}

	s.logger.Sugar().Debugw("Signed NEP-413 message",
		"account_id", accountID,
		"recipient", params.Recipient,
		"digest", digest.String(),
	)
	return digest, &types.SignedMessage{
		AccountID: accountID,
		PublicKey: *held,
		Signature: *sig,
	}, nil
}

// requireKey fails with KeyMismatchError unless declared is the held key.
func (s *Signer) requireKey(ctx context.Context, declared *types.PublicKey) (*types.PublicKey, error) {
	held, err := s.keySigner.GetPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}
	if !declared.Equals(held) {
		return nil, &KeyMismatchError{Declared: declared.String(), Held: held.String()}
	}
	return held, nil
}

func (s *Signer) signDigest(ctx context.Context, digest types.CryptoHash, keyType types.KeyType) (*types.Signature, error) {
	raw, err := s.keySigner.Sign(ctx, digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	sig, err := types.NewSignature(keyType, raw)
	if err != nil {
		return nil, fmt.Errorf("key signer returned an unusable signature: %w", err)
	}
	return sig, nil
}
