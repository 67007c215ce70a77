package identity

import (
	"strings"
	"time"
)

// Role is the coarse access level reported by the identity provider.
type Role string

const (
	// RoleUser is the default role for storefront customers.
	RoleUser Role = "user"

	// RoleAdmin grants access to the /admin area.
	RoleAdmin Role = "admin"
)

// ParseRole maps a provider-reported role string onto the closed role set.
// Anything unrecognized (including the empty string) resolves to RoleUser so
// a missing or garbled claim can never grant elevated access.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// IsAdmin reports whether the role grants admin access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is the provider's view of an account, normalized for Tradewind.
type User struct {
	// ID is the provider-assigned stable identifier.
	ID string `json:"id"`

	// Email is the account email address.
	Email string `json:"email"`

	// Role is the access level. Decoded through ParseRole, so an absent
	// provider role lands on RoleUser.
	Role Role `json:"role"`

	// FirstName and LastName come from the profile metadata captured at
	// sign-up. Either may be empty.
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	// Provider names the upstream identity source that created the
	// account ("email", "google", ...).
	Provider string `json:"provider,omitempty"`
}

// DisplayName returns the user's name for UI chrome, falling back to the
// email address when no profile name was captured.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Email
}

// Session is an authenticated provider session: the token pair plus the
// user it belongs to. Sessions are stored server-side keyed by the browser
// session token; tokens never reach the browser.
type Session struct {
	// AccessToken is the short-lived bearer token for provider calls.
	AccessToken string `json:"access_token"`

	// RefreshToken exchanges for a fresh token pair when the access token
	// nears expiry. Empty when the provider did not issue one.
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is when the access token stops being accepted.
	ExpiresAt time.Time `json:"expires_at"`

	// User is the account this session authenticates.
	User User `json:"user"`
}

// Expired reports whether the access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ExpiresWithin reports whether the access token expires inside the given
// window from now. Used to decide when a background refresh is due.
func (s *Session) ExpiresWithin(now time.Time, window time.Duration) bool {
	return !s.ExpiresAt.IsZero() && now.Add(window).After(s.ExpiresAt)
}
