package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token claims issued by the
// development backend. It includes the standard claims required by the JWT
// specification and the custom claims needed to resolve the authoring user
// on bearer-authenticated blog actions.
type Payload struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer), used for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the identifier of the authenticated account.
	UserID string `json:"userId"`

	// Username is the account handle, carried so display code can avoid a lookup.
	Username string `json:"username"`
}
