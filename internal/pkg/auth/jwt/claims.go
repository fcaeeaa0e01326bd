package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JWT claims issued by this server.
type Payload struct {
	// StandardClaims embeds Exp (Expiration), Iat (Issued At), and Iss (Issuer),
	// which drive token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the numeric identifier of the account the token was issued for.
	UserID int64 `json:"userId"`

	// Username is the account handle, carried so clients can render the
	// identity without an extra lookup. The server never trusts it beyond display.
	Username string `json:"username"`
}
