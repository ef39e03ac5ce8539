package crypto_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"user-auth/internal/crypto"
)

func TestNewBcryptHasherCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, crypto.NewBcryptHasher(0).Cost())
	assert.Equal(t, bcrypt.MinCost, crypto.NewBcryptHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, crypto.NewBcryptHasher(99).Cost())
	assert.Equal(t, 12, crypto.NewBcryptHasher(12).Cost())
}

func TestBcryptHasherHash(t *testing.T) {
	hasher := crypto.NewBcryptHasher(bcrypt.MinCost)

	t.Run("never returns the plaintext", func(t *testing.T) {
		hash, err := hasher.Hash("pw1")
		require.NoError(t, err)
		assert.NotEqual(t, "pw1", hash)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		for _, pw := range []string{"pw1", "b4l0u", "correct horse battery staple", "ünïcødé"} {
			hash1, err := hasher.Hash(pw)
			require.NoError(t, err)
			hash2, err := hasher.Hash(pw)
			require.NoError(t, err)
			assert.NotEqual(t, hash1, hash2, pw)
		}
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, crypto.ErrEmptyPassword)
	})

	t.Run("rejects passwords over the bcrypt limit", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("x", 73))
		assert.ErrorIs(t, err, crypto.ErrPasswordTooLong)

		_, err = hasher.Hash(strings.Repeat("x", 72))
		assert.NoError(t, err)
	})
}

func TestBcryptHasherVerify(t *testing.T) {
	hasher := crypto.NewBcryptHasher(bcrypt.MinCost)

	passwords := []string{"pw1", "b4l0u", "t4rt1fl3tt3", " spaced ", "ünïcødé"}
	hashes := make([]string, len(passwords))
	for i, pw := range passwords {
		h, err := hasher.Hash(pw)
		require.NoError(t, err)
		hashes[i] = h
	}

	t.Run("correct password verifies", func(t *testing.T) {
		for i, pw := range passwords {
			assert.True(t, hasher.Verify(pw, hashes[i]), pw)
		}
	})

	t.Run("other passwords do not verify", func(t *testing.T) {
		for i := range passwords {
			for j := range passwords {
				if i == j {
					continue
				}
				assert.False(t, hasher.Verify(passwords[i], hashes[j]))
			}
		}
	})

	t.Run("malformed input returns false", func(t *testing.T) {
		assert.False(t, hasher.Verify("pw1", ""))
		assert.False(t, hasher.Verify("pw1", "not-a-valid-hash"))
		assert.False(t, hasher.Verify("pw1", "$2a$04$short"))
		assert.False(t, hasher.Verify("", hashes[0]))
	})
}
