package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &Payload{ID: 7, Email: "a@example.com"}

	tokenString, err := GenerateToken(payload, testSecret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	parsed, err := ParseToken(tokenString, testSecret)
	require.NoError(t, err)

	assert.Equal(t, int64(7), parsed.ID)
	assert.Equal(t, "a@example.com", parsed.Email)
	assert.Equal(t, TokenIssuer, parsed.Issuer)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{ID: 7}, testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, "other-secret")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{ID: 7}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, testSecret)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	assert.Error(t, err)
}
