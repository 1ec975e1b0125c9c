package util

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "admin", "secret")
	require.NoError(t, err)

	userID, role, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, "admin", role)
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT(42, "user", "secret")
	require.NoError(t, err)

	_, _, err = ParseJWT(token, "other")
	assert.Error(t, err)
}

func TestJWTGarbage(t *testing.T) {
	_, _, err := ParseJWT("garbage", "secret")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", ExtractToken(req))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(req))

	req.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(req))

	req.Header.Set("Authorization", "Basic abc123")
	assert.Equal(t, "", ExtractToken(req))

	req.Header.Set("Authorization", "abc123")
	assert.Equal(t, "", ExtractToken(req))
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.True(t, CheckPassword("hunter2hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
