package signer

import (
	"errors"
	"fmt"
)

var ErrKeyMismatch = errors.New("public key mismatch")

// ErrInvalidRequest marks payloads the signer refuses before touching the key.
var ErrInvalidRequest = errors.New("invalid signing request")

// KeyMismatchError is returned when a payload declares a key other than the one the signer holds.
type KeyMismatchError struct {
	Declared string
	Held     string
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("public key mismatch: payload declares %s but signer holds %s", e.Declared, e.Held)
}

func (e *KeyMismatchError) Is(target error) bool {
	return target == ErrKeyMismatch
}
