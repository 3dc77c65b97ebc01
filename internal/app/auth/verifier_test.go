package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cesuchat/internal/pkg/auth/jwt"
)

const testSecret = "verifier-secret"

func TestVerifier_Verify(t *testing.T) {
	tokenString, err := jwt.GenerateToken(&jwt.Payload{ID: 7, Email: "a@example.com"}, testSecret, time.Minute)
	require.NoError(t, err)

	verifier := NewVerifier(testSecret)

	identity, err := verifier.Verify(context.Background(), tokenString)
	require.NoError(t, err)
	assert.Equal(t, int64(7), identity.UserID)
	assert.Equal(t, "a@example.com", identity.Email)
}

func TestVerifier_Verify_InvalidToken(t *testing.T) {
	verifier := NewVerifier(testSecret)

	_, err := verifier.Verify(context.Background(), "garbage")
	assert.Error(t, err)
}

func TestVerifier_Verify_ExpiredContext(t *testing.T) {
	tokenString, err := jwt.GenerateToken(&jwt.Payload{ID: 7}, testSecret, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	verifier := NewVerifier(testSecret)
	_, err = verifier.Verify(ctx, tokenString)
	assert.Error(t, err)
}
