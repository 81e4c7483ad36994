package types

import (
	"errors"
	"fmt"
)

// Transaction is an unsigned transaction. Field order is the wire order.
type Transaction struct {
	SignerID   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  CryptoHash
	Actions    []Action
}

type SignedTransaction struct {
	Transaction Transaction
	Signature   Signature
}

// DelegateAction is a meta-transaction: actions the sender authorises a relayer to submit.
type DelegateAction struct {
	SenderID       string
	ReceiverID     string
	Actions        []Action
	Nonce          uint64
	MaxBlockHeight uint64
	PublicKey      PublicKey
}

type SignedDelegate struct {
	DelegateAction DelegateAction
	Signature      Signature
}

var ErrNestedDelegate = errors.New("delegate actions cannot contain delegate actions")

// Validate rejects actions the chain will never accept inside a delegate action.
func (d *DelegateAction) Validate() error {
	if d.SenderID == "" {
		return fmt.Errorf("delegate action sender is required")
	}
	if d.ReceiverID == "" {
		return fmt.Errorf("delegate action receiver is required")
	}
	for i := range d.Actions {
		if d.Actions[i].Kind() == ActionDelegate {
			return fmt.Errorf("action %d: %w", i, ErrNestedDelegate)
		}
	}
	return nil
}

func (t *Transaction) Validate() error {
	if t.SignerID == "" {
		return fmt.Errorf("transaction signer is required")
	}
	if t.ReceiverID == "" {
		return fmt.Errorf("transaction receiver is required")
	}
	return nil
}
