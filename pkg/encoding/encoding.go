package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/near/borsh-go"
)

// DelegateActionPrefix is the NEP-366 discriminant (2^30 + 366) written ahead of a
// delegate action before it is hashed for signing.
const DelegateActionPrefix uint32 = 1<<30 + 366

// ICanonicalEncoder produces the exact bytes that are hashed and signed.
type ICanonicalEncoder interface {
	EncodeTransaction(tx *types.Transaction) ([]byte, error)
	// EncodeDelegateAction returns the NEP-366 prefixed bytes that are hashed for signing.
	EncodeDelegateAction(action *types.DelegateAction) ([]byte, error)
}

// BorshEncoder is the wire encoding used by the chain.
type BorshEncoder struct{}

var _ ICanonicalEncoder = (*BorshEncoder)(nil)

func NewBorshEncoder() *BorshEncoder {
	return &BorshEncoder{}
}

func (e *BorshEncoder) EncodeTransaction(tx *types.Transaction) ([]byte, error) {
	return EncodeTransaction(tx)
}

func (e *BorshEncoder) EncodeDelegateAction(action *types.DelegateAction) ([]byte, error) {
	return EncodeDelegateAction(action)
}

// EncodeU32 is the fixed width little endian u32 encoding.
func EncodeU32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func EncodeTransaction(tx *types.Transaction) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("cannot encode nil transaction")
	}
	data, err := borsh.Serialize(*tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return data, nil
}

func DecodeTransaction(data []byte) (*types.Transaction, error) {
	var tx types.Transaction
	if err := decodeStrict(data, &tx, func() ([]byte, error) { return borsh.Serialize(tx) }); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

func EncodeSignedTransaction(stx *types.SignedTransaction) ([]byte, error) {
	if stx == nil {
		return nil, fmt.Errorf("cannot encode nil signed transaction")
	}
	data, err := borsh.Serialize(*stx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed transaction: %w", err)
	}
	return data, nil
}

func DecodeSignedTransaction(data []byte) (*types.SignedTransaction, error) {
	var stx types.SignedTransaction
	if err := decodeStrict(data, &stx, func() ([]byte, error) { return borsh.Serialize(stx) }); err != nil {
		return nil, fmt.Errorf("failed to decode signed transaction: %w", err)
	}
	return &stx, nil
}

// EncodeDelegateActionBody is the plain encoding, as embedded in a SignedDelegate.
func EncodeDelegateActionBody(action *types.DelegateAction) ([]byte, error) {
	if action == nil {
		return nil, fmt.Errorf("cannot encode nil delegate action")
	}
	data, err := borsh.Serialize(*action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode delegate action: %w", err)
	}
	return data, nil
}

// EncodeDelegateAction returns the signable message: prefix || body.
func EncodeDelegateAction(action *types.DelegateAction) ([]byte, error) {
	body, err := EncodeDelegateActionBody(action)
	if err != nil {
		return nil, err
	}
	return append(EncodeU32(DelegateActionPrefix), body...), nil
}

func DecodeDelegateAction(data []byte) (*types.DelegateAction, error) {
	var action types.DelegateAction
	if err := decodeStrict(data, &action, func() ([]byte, error) { return borsh.Serialize(action) }); err != nil {
		return nil, fmt.Errorf("failed to decode delegate action: %w", err)
	}
	return &action, nil
}

func EncodeSignedDelegate(sd *types.SignedDelegate) ([]byte, error) {
	if sd == nil {
		return nil, fmt.Errorf("cannot encode nil signed delegate")
	}
	data, err := borsh.Serialize(*sd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed delegate: %w", err)
	}
	return data, nil
}

func DecodeSignedDelegate(data []byte) (*types.SignedDelegate, error) {
	var sd types.SignedDelegate
	if err := decodeStrict(data, &sd, func() ([]byte, error) { return borsh.Serialize(sd) }); err != nil {
		return nil, fmt.Errorf("failed to decode signed delegate: %w", err)
	}
	return &sd, nil
}

// decodeStrict deserializes into out and then re-encodes, so only inputs that
// encode back byte-for-byte are accepted. This rejects trailing bytes and
// non-canonical encodings such as unknown key types. Length prefixes are checked
// against the input before anything is allocated for them.
func decodeStrict(data []byte, out interface{}, reencode func() ([]byte, error)) (err error) {
	if len(data) == 0 {
		return fmt.Errorf("empty input")
	}
	if err := checkBounds(reflect.TypeOf(out).Elem(), data); err != nil {
		return err
	}
	// borsh-go panics on some malformed enum payloads
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed input: %v", r)
		}
	}()

	if err := borsh.Deserialize(out, data); err != nil {
		return err
	}
	again, err := reencode()
	if err != nil {
		return err
	}
	if !bytes.Equal(again, data) {
		if len(again) < len(data) {
			return fmt.Errorf("%d trailing bytes", len(data)-len(again))
		}
		return fmt.Errorf("input is not canonically encoded")
	}
	return nil
}
