package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSigningKey returns a random signing key of n bytes, base64url
// encoded for use as JWT_SECRET. n below MinSigningKeyLen is raised to it.
func GenerateSigningKey(n int) (string, error) {
	if n < MinSigningKeyLen {
		n = MinSigningKeyLen
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
