package auth

import (
	"context"

	"github.com/tradewindhq/tradewind/internal/identity"
)

// Provider is the slice of the identity client the auth service consumes.
// *identity.Client satisfies it; tests substitute a function-field mock.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	SignUp(ctx context.Context, params identity.SignUpParams) (*identity.SignUpResult, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPassword(ctx context.Context, email string) error
	Refresh(ctx context.Context, refreshToken string) (*identity.Session, error)
	User(ctx context.Context, accessToken string) (*identity.User, error)
	UpdateUser(ctx context.Context, accessToken string, params identity.ProfileParams) (*identity.User, error)
}

// LoginRequest is the login form payload.
type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// RegisterRequest is the registration form payload.
type RegisterRequest struct {
	Email     string `form:"email"`
	Password  string `form:"password"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
}

// ProfileRequest is the account page form payload.
type ProfileRequest struct {
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
}

// SignUpInput carries validated registration data into the service.
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignUpOutcome reports what a successful sign-up produced. When the
// provider requires email confirmation no session exists yet and
// ConfirmationSent is true; otherwise the account is signed in immediately
// and Token names the new browser session.
type SignUpOutcome struct {
	Token            string
	Session          *identity.Session
	User             identity.User
	ConfirmationSent bool
}
