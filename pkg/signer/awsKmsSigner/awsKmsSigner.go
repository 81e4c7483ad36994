package awsKmsSigner

import (
	"context"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sync"

	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmsTypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// KMSAPI is the subset of the KMS client the signer uses.
type KMSAPI interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
}

// KeyInfo summarises a KMS key for operators.
type KeyInfo struct {
	KeyId     string
	Arn       string
	KeySpec   string
	KeyUsage  string
	Enabled   bool
	PublicKey *types.PublicKey
}

// AWSKMSSigner signs digests with an ECC_SECG_P256K1 key that never leaves AWS KMS.
type AWSKMSSigner struct {
	logger    *zap.Logger
	kmsClient KMSAPI
	keyId     string

	mu        sync.Mutex
	publicKey *types.PublicKey
}

var _ signer.IKeySigner = (*AWSKMSSigner)(nil)

var secp256k1N, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
var secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)

func NewAWSKMSSigner(awsCfg aws.Config, keyId string, logger *zap.Logger) *AWSKMSSigner {
	return NewAWSKMSSignerWithClient(kms.NewFromConfig(awsCfg), keyId, logger)
}

func NewAWSKMSSignerWithClient(client KMSAPI, keyId string, logger *zap.Logger) *AWSKMSSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSKMSSigner{
		logger:    logger,
		kmsClient: client,
		keyId:     keyId,
	}
}

// GetPublicKey fetches the key from KMS once and serves the cached copy afterwards.
func (a *AWSKMSSigner) GetPublicKey(ctx context.Context) (*types.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.publicKey != nil {
		return a.publicKey, nil
	}

	res, err := a.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(a.keyId)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for key %s", a.keyId)
	}
	if res.KeySpec != kmsTypes.KeySpecEccSecgP256k1 {
		return nil, fmt.Errorf("key %s has spec %s, expected %s", a.keyId, res.KeySpec, kmsTypes.KeySpecEccSecgP256k1)
	}
	pk, err := parsePublicKey(res.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse public key for key %s", a.keyId)
	}
	a.logger.Sugar().Infow("Loaded KMS public key",
		"key_id", a.keyId,
		"public_key", pk.String(),
	)
	a.publicKey = pk
	return pk, nil
}

// Sign signs a 32 byte digest and returns r || s || v with low s and v in {0, 1}.
func (a *AWSKMSSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) != types.CryptoHashLength {
		return nil, fmt.Errorf("hash must be exactly 32 bytes, got %d", len(data))
	}

	expected, err := a.GetPublicKey(ctx)
	if err != nil {
		return nil, err
	}

	out, err := a.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(a.keyId),
		Message:          data,
		SigningAlgorithm: kmsTypes.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      kmsTypes.MessageTypeDigest,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign with key %s", a.keyId)
	}

	var sigAsn1 asn1EcSig
	if _, err := asn1.Unmarshal(out.Signature, &sigAsn1); err != nil {
		return nil, errors.Wrap(err, "failed to parse KMS signature")
	}

	r := sigAsn1.R
	s := sigAsn1.S
	if r == nil || s == nil || r.Sign() <= 0 || s.Sign() <= 0 ||
		r.Cmp(secp256k1N) >= 0 || s.Cmp(secp256k1N) >= 0 {
		return nil, fmt.Errorf("KMS returned an invalid signature")
	}
	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	sig := make([]byte, types.SECP256K1SignatureLength)
	r.FillBytes(sig[0:32])
	s.FillBytes(sig[32:64])

	want := append([]byte{0x04}, expected.Bytes()...)
	for recoveryId := byte(0); recoveryId < 2; recoveryId++ {
		sig[64] = recoveryId
		recovered, err := crypto.Ecrecover(data, sig)
		if err != nil {
			a.logger.Debug("Ecrecover failed",
				zap.Uint8("recoveryId", recoveryId),
				zap.Error(err))
			continue
		}
		if string(recovered) == string(want) {
			return sig, nil
		}
	}

	return nil, fmt.Errorf("could not determine valid recovery ID - signature recovery failed")
}

// DescribeKey reports the key metadata along with its NEAR public key.
func (a *AWSKMSSigner) DescribeKey(ctx context.Context) (*KeyInfo, error) {
	res, err := a.kmsClient.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(a.keyId)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to describe key %s", a.keyId)
	}
	pk, err := a.GetPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	meta := res.KeyMetadata
	return &KeyInfo{
		KeyId:     aws.ToString(meta.KeyId),
		Arn:       aws.ToString(meta.Arn),
		KeySpec:   string(meta.KeySpec),
		KeyUsage:  string(meta.KeyUsage),
		Enabled:   meta.Enabled,
		PublicKey: pk,
	}, nil
}

// NewSigner builds a full signer backed by a KMS key.
func NewSigner(awsCfg aws.Config, keyId string, logger *zap.Logger) *signer.Signer {
	return signer.NewSigner(NewAWSKMSSigner(awsCfg, keyId, logger), nil, logger)
}

// parsePublicKey decodes the DER SubjectPublicKeyInfo KMS returns.
func parsePublicKey(derBytes []byte) (*types.PublicKey, error) {
	var asn1pubk asn1EcPublicKey
	if _, err := asn1.Unmarshal(derBytes, &asn1pubk); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}
	ecdsaPub, err := crypto.UnmarshalPubkey(asn1pubk.PublicKey.Bytes)
	if err != nil {
		return nil, err
	}
	return types.NewPublicKey(types.KeyTypeSECP256K1, crypto.FromECDSAPub(ecdsaPub)[1:])
}

type asn1EcSig struct {
	R *big.Int
	S *big.Int
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}
