package persistence

import (
	"fmt"
	"sort"
	"time"
)

// ArtifactKind names what was signed.
type ArtifactKind string

const (
	ArtifactKindTransaction ArtifactKind = "transaction"
	ArtifactKindDelegate    ArtifactKind = "delegate"
	ArtifactKindMessage     ArtifactKind = "message"
)

func (k ArtifactKind) Validate() error {
	switch k {
	case ArtifactKindTransaction, ArtifactKindDelegate, ArtifactKindMessage:
		return nil
	default:
		return fmt.Errorf("unknown artifact kind %q", string(k))
	}
}

// SignatureRecord is one signing event.
type SignatureRecord struct {
	// Id uniquely identifies the signing event.
	Id string `json:"id"`

	Kind ArtifactKind `json:"kind"`

	// Digest is the base58 sha256 that was signed. It is the primary key.
	Digest string `json:"digest"`

	// SignerId is the account that signed: the transaction signer, the delegate
	// sender or the NEP-413 account.
	SignerId string `json:"signerId"`

	PublicKey string `json:"publicKey"`

	// Receiver is the transaction receiver, delegate receiver or NEP-413 recipient.
	Receiver string `json:"receiver"`

	// Nonce is zero for messages, whose nonce is not a counter.
	Nonce uint64 `json:"nonce"`

	// Artifact is the borsh signed transaction or delegate, or the JSON signed message.
	Artifact []byte `json:"artifact"`

	CreatedAt time.Time `json:"createdAt"`
}

// RecordFilter narrows ListRecords. Zero fields match everything.
type RecordFilter struct {
	Kind     ArtifactKind
	SignerId string
	// Limit keeps the most recent records when positive.
	Limit int
}

// Matches reports whether record passes the filter.
func (f *RecordFilter) Matches(record *SignatureRecord) bool {
	if f == nil {
		return true
	}
	if f.Kind != "" && record.Kind != f.Kind {
		return false
	}
	if f.SignerId != "" && record.SignerId != f.SignerId {
		return false
	}
	return true
}

// SortAndLimit orders records by CreatedAt ascending and applies the filter limit.
func SortAndLimit(records []*SignatureRecord, filter *RecordFilter) []*SignatureRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	if filter != nil && filter.Limit > 0 && len(records) > filter.Limit {
		records = records[len(records)-filter.Limit:]
	}
	if records == nil {
		return []*SignatureRecord{}
	}
	return records
}

// Validate checks the fields every backend relies on.
func (r *SignatureRecord) Validate() error {
	if r.Digest == "" {
		return fmt.Errorf("record digest is required")
	}
	if r.Id == "" {
		return fmt.Errorf("record id is required")
	}
	return r.Kind.Validate()
}
