package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	// base64url without padding, decoding back to KeyLength bytes
	decoded, err := base64.RawURLEncoding.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, decoded, KeyLength)
	assert.NotContains(t, key, "=")
	assert.NotContains(t, key, "+")
	assert.NotContains(t, key, "/")
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateAPIKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key generated")
		seen[key] = true
	}
}
