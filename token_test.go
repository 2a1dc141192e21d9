package main

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	config = DefaultConfig
	config.Secret = testSecret

	token, err := NewToken("abc", time.Now())
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.QuoteID)

	config.Secret = "other"
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpires(t *testing.T) {
	config = DefaultConfig
	config.Secret = testSecret

	issuedAt := time.Now()
	token, err := NewToken("abc", issuedAt)
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(config.QuoteDuration).Unix(), claims.ExpiresAt)

	token, err = NewToken("abc", time.Now().Add(-config.QuoteDuration-time.Minute))
	require.NoError(t, err)
	_, err = ParseToken(token)
	assert.Equal(t, errTokenExpired, err)
}

func TestTokenRejectsNone(t *testing.T) {
	config = DefaultConfig
	config.Secret = testSecret

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, QuoteClaims{QuoteID: "abc"})
	s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(s)
	assert.Error(t, err)
}

func TestTokenWithoutQuoteID(t *testing.T) {
	config = DefaultConfig
	config.Secret = testSecret

	token, err := NewToken("", time.Now())
	require.NoError(t, err)
	_, err = ParseToken(token)
	assert.Equal(t, errInvalidToken, err)
}

func TestNewSecret(t *testing.T) {
	a, err := NewSecret()
	require.NoError(t, err)
	b, err := NewSecret()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
