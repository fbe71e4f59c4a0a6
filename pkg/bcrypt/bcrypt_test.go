package bcrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	b := NewWithCost(bcrypt.MinCost)

	hash, err := b.HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)

	assert.NoError(t, b.ComparePassword(hash, "admin123"))
	assert.ErrorIs(t, b.ComparePassword(hash, "admin124"), ErrMismatchedPassword)
	assert.Error(t, b.ComparePassword("", "admin123"))
}

func TestCostFromEnv(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")
	hash, err := New().HashPassword("x")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)

	t.Setenv("BCRYPT_COST", "nope")
	assert.Equal(t, bcrypt.DefaultCost, New().(*bcryptService).cost)
}
