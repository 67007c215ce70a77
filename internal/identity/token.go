package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims is the claim set carried in provider access tokens.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ErrNoExpiry is returned by TokenExpiry when the token carries no exp claim.
var ErrNoExpiry = errors.New("identity: token has no expiry claim")

// TokenExpiry extracts the expiry time from a provider access token.
//
// The signature is NOT verified: the provider holds the signing key and
// Tradewind never receives it. Claims read here schedule refreshes and fill
// gaps in provider responses; authorization always comes from the session
// the provider returned over TLS, not from locally decoded claims.
func TokenExpiry(raw string) (time.Time, error) {
	claims, err := parseClaims(raw)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// TokenSubject extracts the subject (user ID) claim from a provider access
// token, or "" when absent. Same verification caveat as TokenExpiry.
func TokenSubject(raw string) string {
	claims, err := parseClaims(raw)
	if err != nil {
		return ""
	}
	return claims.Subject
}

func parseClaims(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
