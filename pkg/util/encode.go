package util

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Layr-Labs/near-signer-go/pkg/types"
)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeBase64 accepts standard or URL-safe base64, with or without padding.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, enc := range base64Encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("invalid base64: %w", lastErr)
}

func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Sha256 is the digest used for every signed payload.
func Sha256(data []byte) types.CryptoHash {
	return types.CryptoHash(sha256.Sum256(data))
}
