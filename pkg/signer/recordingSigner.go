package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordingSigner journals every signature its inner signer produces. An artifact is only
// handed back once its record is stored.
type RecordingSigner struct {
	inner   ISigner
	journal persistence.ISignatureJournal
	logger  *zap.Logger
	now     func() time.Time
}

var _ ISigner = (*RecordingSigner)(nil)

func NewRecordingSigner(inner ISigner, journal persistence.ISignatureJournal, logger *zap.Logger) *RecordingSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingSigner{
		inner:   inner,
		journal: journal,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *RecordingSigner) GetPublicKey(ctx context.Context) (*types.PublicKey, error) {
	return r.inner.GetPublicKey(ctx)
}

func (r *RecordingSigner) SignTransaction(ctx context.Context, tx *types.Transaction) (types.CryptoHash, *types.SignedTransaction, error) {
	digest, stx, err := r.inner.SignTransaction(ctx, tx)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	artifact, err := encoding.EncodeSignedTransaction(stx)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("failed to encode signed transaction: %w", err)
	}
	err = r.record(&persistence.SignatureRecord{
		Kind:      persistence.ArtifactKindTransaction,
		Digest:    digest.String(),
		SignerId:  tx.SignerID,
		PublicKey: tx.PublicKey.String(),
		Receiver:  tx.ReceiverID,
		Nonce:     tx.Nonce,
		Artifact:  artifact,
	})
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	return digest, stx, nil
}

func (r *RecordingSigner) SignDelegateAction(ctx context.Context, action *types.DelegateAction) (types.CryptoHash, *types.SignedDelegate, error) {
	digest, sd, err := r.inner.SignDelegateAction(ctx, action)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	artifact, err := encoding.EncodeSignedDelegate(sd)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("failed to encode signed delegate: %w", err)
	}
	err = r.record(&persistence.SignatureRecord{
		Kind:      persistence.ArtifactKindDelegate,
		Digest:    digest.String(),
		SignerId:  action.SenderID,
		PublicKey: action.PublicKey.String(),
		Receiver:  action.ReceiverID,
		Nonce:     action.Nonce,
		Artifact:  artifact,
	})
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	return digest, sd, nil
}

func (r *RecordingSigner) SignNep413Message(ctx context.Context, accountID string, params *types.SignMessageParams) (types.CryptoHash, *types.SignedMessage, error) {
	digest, msg, err := r.inner.SignNep413Message(ctx, accountID, params)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	artifact, err := json.Marshal(msg)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("failed to encode signed message: %w", err)
	}
	err = r.record(&persistence.SignatureRecord{
		Kind:      persistence.ArtifactKindMessage,
		Digest:    digest.String(),
		SignerId:  accountID,
		PublicKey: msg.PublicKey.String(),
		Receiver:  params.Recipient,
		Artifact:  artifact,
	})
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	return digest, msg, nil
}

func (r *RecordingSigner) record(rec *persistence.SignatureRecord) error {
	rec.Id = uuid.NewString()
	rec.CreatedAt = r.now()
	if err := r.journal.SaveRecord(rec); err != nil {
		r.logger.Sugar().Errorw("Failed to journal signature",
			"kind", rec.Kind,
			"digest", rec.Digest,
			"error", err,
		)
		return fmt.Errorf("failed to journal %s signature: %w", rec.Kind, err)
	}
	r.logger.Sugar().Infow("Journaled signature",
		"kind", rec.Kind,
		"id", rec.Id,
		"digest", rec.Digest,
		"signer_id", rec.SignerId,
	)
	return nil
}
