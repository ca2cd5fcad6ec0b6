package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, DefaultCost, NewHasher(99).Cost())
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).Cost())
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, h.Verify("s3cret-pass", hash))
	assert.False(t, h.Verify("s3cret-pasS", hash))
	assert.False(t, h.Verify("", hash))
	assert.False(t, h.Verify("s3cret-pass", ""))
	assert.False(t, h.Verify("s3cret-pass", "not-a-bcrypt-hash"))
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("same")
	require.NoError(t, err)
	second, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("same", first))
	assert.True(t, h.Verify("same", second))
}

func TestHasher_TooLong(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", MaxLength+1))
	assert.ErrorIs(t, err, ErrTooLong)

	hash, err := h.Hash(strings.Repeat("a", MaxLength))
	require.NoError(t, err)
	assert.False(t, h.Verify(strings.Repeat("a", MaxLength+1), hash))
}

func TestHasher_VerifyDummy(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	assert.False(t, h.VerifyDummy("anything"))
	assert.False(t, h.VerifyDummy(strings.Repeat("x", 100)))
}
