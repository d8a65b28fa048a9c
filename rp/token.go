package rp

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// NewToken generates a random token of exactly length characters, drawn from
// a URL-safe alphabet and a cryptographically secure source. The result is
// suitable for use as an oidc state or nonce.
func NewToken(length int) (string, error) {
	const op = "rp.NewToken"
	if length <= 0 {
		return "", fmt.Errorf("%s: length not greater than zero: %w", op, ErrInvalidParameter)
	}
	// base64 encodes 3 bytes into 4 characters; one extra byte guarantees
	// the encoding is at least length characters before trimming.
	b, err := uuid.GenerateRandomBytes((length*3)/4 + 1)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate random bytes: %w", op, ErrIdGeneratorFailed)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}
