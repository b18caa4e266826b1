package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeyLength is the number of random bytes in an API key (256 bits).
const KeyLength = 32

// GenerateAPIKey creates a new API key: KeyLength bytes from crypto/rand,
// base64url-encoded without padding.
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}
