package types

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
)

// KeyType is the on-chain key algorithm discriminant.
type KeyType uint8

const (
	KeyTypeED25519   KeyType = 0
	KeyTypeSECP256K1 KeyType = 1
)

const (
	ED25519PublicKeyLength   = 32
	SECP256K1PublicKeyLength = 64
	ED25519SignatureLength   = 64
	SECP256K1SignatureLength = 65
	CryptoHashLength         = 32
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeED25519:
		return "ed25519"
	case KeyTypeSECP256K1:
		return "secp256k1"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// KeyTypeFromString converts a key type prefix into a KeyType
func KeyTypeFromString(s string) (KeyType, error) {
	switch strings.ToLower(s) {
	case "ed25519":
		return KeyTypeED25519, nil
	case "secp256k1":
		return KeyTypeSECP256K1, nil
	default:
		return 0, fmt.Errorf("unknown key type '%s'", s)
	}
}

func (k KeyType) PublicKeyLength() int {
	if k == KeyTypeSECP256K1 {
		return SECP256K1PublicKeyLength
	}
	return ED25519PublicKeyLength
}

func (k KeyType) SignatureLength() int {
	if k == KeyTypeSECP256K1 {
		return SECP256K1SignatureLength
	}
	return ED25519SignatureLength
}

func (k KeyType) valid() bool {
	return k == KeyTypeED25519 || k == KeyTypeSECP256K1
}

type ED25519PublicKey struct {
	Data [ED25519PublicKeyLength]byte
}

type SECP256K1PublicKey struct {
	Data [SECP256K1PublicKeyLength]byte
}

// PublicKey is the tagged public key union as it appears on the wire.
type PublicKey struct {
	Enum      borsh.Enum `borsh_enum:"true"`
	ED25519   ED25519PublicKey
	SECP256K1 SECP256K1PublicKey
}

// NewPublicKey wraps raw key bytes of the given type.
func NewPublicKey(keyType KeyType, raw []byte) (*PublicKey, error) {
	if !keyType.valid() {
		return nil, fmt.Errorf("unsupported key type %d", uint8(keyType))
	}
	if len(raw) != keyType.PublicKeyLength() {
		return nil, fmt.Errorf("invalid %s public key length: expected %d, got %d", keyType, keyType.PublicKeyLength(), len(raw))
	}
	pk := &PublicKey{Enum: borsh.Enum(keyType)}
	if keyType == KeyTypeSECP256K1 {
		copy(pk.SECP256K1.Data[:], raw)
	} else {
		copy(pk.ED25519.Data[:], raw)
	}
	return pk, nil
}

// ParsePublicKey parses "<keytype>:<base58>". A string without a prefix is read as ed25519.
func ParsePublicKey(s string) (*PublicKey, error) {
	keyType, raw, err := parseKeyString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return NewPublicKey(keyType, raw)
}

// MustParsePublicKey is ParsePublicKey for fixtures and constants.
func MustParsePublicKey(s string) *PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (pk *PublicKey) KeyType() KeyType {
	return KeyType(pk.Enum)
}

// Bytes returns the raw key without the type tag
func (pk *PublicKey) Bytes() []byte {
	if pk.KeyType() == KeyTypeSECP256K1 {
		return bytes.Clone(pk.SECP256K1.Data[:])
	}
	return bytes.Clone(pk.ED25519.Data[:])
}

func (pk PublicKey) String() string {
	return pk.KeyType().String() + ":" + base58.Encode(pk.Bytes())
}

// Equals compares two keys by their canonical string encoding.
func (pk *PublicKey) Equals(other *PublicKey) bool {
	if pk == nil || other == nil {
		return pk == other
	}
	return pk.String() == other.String()
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = *parsed
	return nil
}

// Verify checks sig over message. For secp256k1 the message must be the 32-byte digest that was signed.
func (pk *PublicKey) Verify(message []byte, sig *Signature) bool {
	if sig == nil || sig.KeyType() != pk.KeyType() {
		return false
	}
	switch pk.KeyType() {
	case KeyTypeED25519:
		return ed25519.Verify(pk.ED25519.Data[:], message, sig.ED25519.Data[:])
	case KeyTypeSECP256K1:
		if len(message) != CryptoHashLength {
			return false
		}
		uncompressed := append([]byte{0x04}, pk.SECP256K1.Data[:]...)
		return crypto.VerifySignature(uncompressed, message, sig.SECP256K1.Data[:64])
	default:
		return false
	}
}

type ED25519Signature struct {
	Data [ED25519SignatureLength]byte
}

// SECP256K1Signature is r || s || v with v the recovery id (0 or 1)
type SECP256K1Signature struct {
	Data [SECP256K1SignatureLength]byte
}

// Signature is the tagged signature union as it appears on the wire.
type Signature struct {
	Enum      borsh.Enum `borsh_enum:"true"`
	ED25519   ED25519Signature
	SECP256K1 SECP256K1Signature
}

// NewSignature wraps raw signature bytes under the given key type. Only the length is checked.
func NewSignature(keyType KeyType, raw []byte) (*Signature, error) {
	if !keyType.valid() {
		return nil, fmt.Errorf("unsupported key type %d", uint8(keyType))
	}
	if len(raw) != keyType.SignatureLength() {
		return nil, fmt.Errorf("invalid %s signature length: expected %d, got %d", keyType, keyType.SignatureLength(), len(raw))
	}
	sig := &Signature{Enum: borsh.Enum(keyType)}
	if keyType == KeyTypeSECP256K1 {
		copy(sig.SECP256K1.Data[:], raw)
	} else {
		copy(sig.ED25519.Data[:], raw)
	}
	return sig, nil
}

func ParseSignature(s string) (*Signature, error) {
	keyType, raw, err := parseKeyString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature: %w", err)
	}
	return NewSignature(keyType, raw)
}

func (s *Signature) KeyType() KeyType {
	return KeyType(s.Enum)
}

func (s *Signature) Bytes() []byte {
	if s.KeyType() == KeyTypeSECP256K1 {
		return bytes.Clone(s.SECP256K1.Data[:])
	}
	return bytes.Clone(s.ED25519.Data[:])
}

func (s Signature) String() string {
	return s.KeyType().String() + ":" + base58.Encode(s.Bytes())
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// CryptoHash is a sha256 digest, rendered in base58 like block hashes are.
type CryptoHash [CryptoHashLength]byte

func ParseCryptoHash(s string) (CryptoHash, error) {
	var h CryptoHash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("failed to decode hash '%s': %w", s, err)
	}
	if len(raw) != CryptoHashLength {
		return h, fmt.Errorf("invalid hash length: expected %d, got %d", CryptoHashLength, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h CryptoHash) String() string {
	return base58.Encode(h[:])
}

func (h CryptoHash) IsZero() bool {
	return h == CryptoHash{}
}

func (h CryptoHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *CryptoHash) UnmarshalText(text []byte) error {
	parsed, err := ParseCryptoHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// parseKeyString splits "<keytype>:<base58>" and decodes the payload.
func parseKeyString(s string) (KeyType, []byte, error) {
	keyType := KeyTypeED25519
	data := s
	if prefix, rest, found := strings.Cut(s, ":"); found {
		kt, err := KeyTypeFromString(prefix)
		if err != nil {
			return 0, nil, err
		}
		keyType = kt
		data = rest
	}
	raw, err := base58.Decode(data)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid base58 payload: %w", err)
	}
	return keyType, raw, nil
}

// SplitKeyString exposes the prefix parsing for secret key strings.
func SplitKeyString(s string) (KeyType, []byte, error) {
	return parseKeyString(s)
}
