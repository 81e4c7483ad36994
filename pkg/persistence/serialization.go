package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptRecord is returned when stored bytes do not decode to a valid record.
var ErrCorruptRecord = errors.New("corrupt signature record")

// MarshalSignatureRecord encodes a valid record as JSON. The artifact is carried as
// base64 by encoding/json.
func MarshalSignatureRecord(record *SignatureRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil SignatureRecord")
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to marshal invalid SignatureRecord: %w", err)
	}
	return json.Marshal(record)
}

// UnmarshalSignatureRecord decodes stored bytes and re-checks the record, so a backend
// never hands out a record it could not have accepted.
func UnmarshalSignatureRecord(data []byte) (*SignatureRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrCorruptRecord)
	}

	var record SignatureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal: %v", ErrCorruptRecord, err)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &record, nil
}
