package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// NonceLength is the required size of a NEP-413 nonce
const NonceLength = 32

// SignMessageParams is an off-chain message signing request.
type SignMessageParams struct {
	Message     string
	Nonce       []byte
	Recipient   string
	CallbackURL *string
}

// SignedMessage is the result of off-chain signing. It is never submitted on-chain.
type SignedMessage struct {
	AccountID string
	PublicKey PublicKey
	Signature Signature
	State     string
}

type signedMessageJSON struct {
	AccountID string    `json:"accountId"`
	PublicKey PublicKey `json:"publicKey"`
	Signature string    `json:"signature"`
	State     string    `json:"state,omitempty"`
}

// MarshalJSON emits the wallet wire shape: the signature is base64 of the raw bytes.
func (m SignedMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(signedMessageJSON{
		AccountID: m.AccountID,
		PublicKey: m.PublicKey,
		Signature: base64.StdEncoding.EncodeToString(m.Signature.Bytes()),
		State:     m.State,
	})
}

func (m *SignedMessage) UnmarshalJSON(data []byte) error {
	var raw signedMessageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sigBytes, err := base64.StdEncoding.DecodeString(raw.Signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}
	sig, err := NewSignature(raw.PublicKey.KeyType(), sigBytes)
	if err != nil {
		return err
	}
	m.AccountID = raw.AccountID
	m.PublicKey = raw.PublicKey
	m.Signature = *sig
	m.State = raw.State
	return nil
}
