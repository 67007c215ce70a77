package identity

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"admin", RoleAdmin},
		{"Admin", RoleAdmin},
		{" admin ", RoleAdmin},
		{"", RoleUser},
		{"owner", RoleUser},
		{"superuser", RoleUser},
	}

	for _, tt := range tests {
		t.Run("role "+tt.in, func(t *testing.T) {
			if got := ParseRole(tt.in); got != tt.want {
				t.Errorf("ParseRole(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRole_IsAdmin(t *testing.T) {
	if RoleUser.IsAdmin() {
		t.Error("user role must not be admin")
	}
	if !RoleAdmin.IsAdmin() {
		t.Error("admin role must be admin")
	}
}

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"full name", User{FirstName: "Alice", LastName: "Ray", Email: "a@example.com"}, "Alice Ray"},
		{"first only", User{FirstName: "Alice", Email: "a@example.com"}, "Alice"},
		{"last only", User{LastName: "Ray", Email: "a@example.com"}, "Ray"},
		{"email fallback", User{Email: "a@example.com"}, "a@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()

	live := &Session{ExpiresAt: now.Add(time.Hour)}
	if live.Expired(now) {
		t.Error("session an hour from expiry is not expired")
	}

	dead := &Session{ExpiresAt: now.Add(-time.Minute)}
	if !dead.Expired(now) {
		t.Error("session past expiry is expired")
	}

	exact := &Session{ExpiresAt: now}
	if !exact.Expired(now) {
		t.Error("session at the expiry instant is expired")
	}

	// No expiry on record means nothing to expire against.
	unknown := &Session{}
	if unknown.Expired(now) {
		t.Error("session with no expiry cannot be expired")
	}
}

func TestSession_ExpiresWithin(t *testing.T) {
	now := time.Now()
	sess := &Session{ExpiresAt: now.Add(3 * time.Minute)}

	if sess.ExpiresWithin(now, time.Minute) {
		t.Error("expiry 3m out is not within a 1m window")
	}
	if !sess.ExpiresWithin(now, 5*time.Minute) {
		t.Error("expiry 3m out is within a 5m window")
	}

	unknown := &Session{}
	if unknown.ExpiresWithin(now, time.Hour) {
		t.Error("session with no expiry never reports as expiring")
	}
}
