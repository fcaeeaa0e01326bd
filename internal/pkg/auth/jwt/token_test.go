package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &Payload{UserID: 42, Username: "alice"}

	tokenString, err := GenerateToken(payload, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	parsed, err := ParseToken(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), parsed.UserID)
	assert.Equal(t, "alice", parsed.Username)
	assert.Equal(t, TokenIssuer, parsed.Issuer)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{UserID: 1}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, "a-different-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenExpired(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{UserID: 1}, testSecret, -time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifierDelegatesToParse(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{UserID: 7, Username: "bob"}, testSecret, time.Hour)
	require.NoError(t, err)

	v := NewVerifier(testSecret)

	claims, err := v.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)

	_, err = v.Verify("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
