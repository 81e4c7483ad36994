package signerClient

import (
	"context"
	"net/http"

	"github.com/Layr-Labs/near-signer-go/pkg/merkle"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
)

// ISignerClient is a remote signer. Its signing methods return the same typed errors
// as a local signer, *signer.KeyMismatchError and *nep413.InvalidNonceError.
type ISignerClient interface {
	signer.ISigner

	// SetHttpClient replaces the HTTP client, for tests or custom transports.
	SetHttpClient(client *http.Client)

	// VerifyMessage asks the service to check a NEP-413 signature.
	VerifyMessage(ctx context.Context, signed *types.SignedMessage, params *types.SignMessageParams) (bool, error)

	// GetSignatureRecord returns the journaled record for digest, or nil when none exists.
	GetSignatureRecord(ctx context.Context, digest types.CryptoHash) (*persistence.SignatureRecord, error)

	// GetJournalRoot returns the merkle root over every journaled signature.
	GetJournalRoot(ctx context.Context) (*types.JournalRootResponse, error)

	// GetSignatureProof fetches an inclusion proof for digest and verifies it locally.
	GetSignatureProof(ctx context.Context, digest types.CryptoHash) (*merkle.MerkleProof, types.CryptoHash, error)

	Health(ctx context.Context) (*types.HealthResponse, error)
}

var _ ISignerClient = (*Client)(nil)
