package jwtPkg

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Setenv(AccessTokenSecret, "test-secret")

	token, exp, err := Sign(map[string]interface{}{
		"id":       "01HXYZ",
		"username": "admin",
	}, time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), exp, 5)

	parsed, err := Verify(token, AccessTokenSecret)
	require.NoError(t, err)

	user, err := ClaimsToUser(parsed.Claims.(jwt.MapClaims))
	require.NoError(t, err)
	assert.Equal(t, "01HXYZ", user.ID)
	assert.Equal(t, "admin", user.Username)
}

func TestVerifyRejects(t *testing.T) {
	t.Setenv(AccessTokenSecret, "test-secret")

	expired, _, err := Sign(map[string]interface{}{"id": "1", "username": "a"}, -time.Minute)
	require.NoError(t, err)
	_, err = Verify(expired, AccessTokenSecret)
	assert.Error(t, err)

	t.Setenv(AccessTokenSecret, "other-secret")
	valid, _, err := Sign(map[string]interface{}{"id": "1", "username": "a"}, time.Hour)
	require.NoError(t, err)
	t.Setenv(AccessTokenSecret, "test-secret")
	_, err = Verify(valid, AccessTokenSecret)
	assert.Error(t, err)
}

func TestSignWithoutSecret(t *testing.T) {
	t.Setenv(AccessTokenSecret, "")
	_, _, err := Sign(nil, time.Hour)
	assert.ErrorIs(t, err, ErrSecretNotSet)
}

func TestClaimsToUserMissingFields(t *testing.T) {
	_, err := ClaimsToUser(jwt.MapClaims{"id": "1"})
	assert.Error(t, err)
	_, err = ClaimsToUser(jwt.MapClaims{"username": "a"})
	assert.Error(t, err)
}
