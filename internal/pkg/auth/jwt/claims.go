package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JWT claims for the messaging hub.
// It embeds the standard claims required by the JWT specification and carries
// the custom claims the session gateway needs to identify the principal.
type Payload struct {
	// StandardClaims embeds the standard JWT fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer), required for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the numeric user id of the authenticated account. It is the identity
	// attached to the websocket connection after verification.
	ID int64 `json:"id"`

	// Email is the account email, carried for display and logging purposes only.
	Email string `json:"email,omitempty"`
}
