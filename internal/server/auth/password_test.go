package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost(hash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.True(t, h.Verify(hash, "secret1"))
	assert.False(t, h.Verify(hash, "secret2"))
	assert.False(t, h.Verify([]byte("garbage"), "secret1"))

	again, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salted")
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	_, err := h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
