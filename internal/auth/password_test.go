package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordVerifiesAgainstPlaintext(t *testing.T) {
	hash, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "password123", hash)
	assert.NoError(t, ComparePassword(hash, "password123"))
}

func TestComparePasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.Error(t, ComparePassword(hash, "password124"))
	assert.Error(t, ComparePassword(hash, ""))
}

func TestHashPasswordProducesDistinctDigests(t *testing.T) {
	first, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	// each digest embeds a fresh random salt
	assert.NotEqual(t, first, second)
}

func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	_, err := HashPassword(string(long), bcrypt.MinCost)
	assert.Error(t, err)
}
