/*
Package auth adapts the JWT helpers to the hub's TokenVerifier collaborator.
*/
package auth

import (
	"context"
	"fmt"

	"cesuchat/internal/app/hub"
	"cesuchat/internal/pkg/auth/jwt"
)

// Verifier validates HS256 bearer tokens and yields the authenticated identity.
type Verifier struct {
	secret string
}

// NewVerifier constructs a Verifier with the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify implements hub.TokenVerifier. Parsing is CPU-bound, but the ctx check
// honors the gateway's verification timeout if the caller has already expired.
func (v *Verifier) Verify(ctx context.Context, token string) (hub.Identity, error) {
	if err := ctx.Err(); err != nil {
		return hub.Identity{}, err
	}

	payload, err := jwt.ParseToken(token, v.secret)
	if err != nil {
		return hub.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	return hub.Identity{UserID: payload.ID, Email: payload.Email}, nil
}
