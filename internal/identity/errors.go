package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Code classifies an auth failure. The set is closed: UI and logging switch
// on these values, so new provider failure modes must map into an existing
// code (usually CodeProviderError) rather than extend the set ad hoc.
type Code string

const (
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeEmailNotConfirmed  Code = "EMAIL_NOT_CONFIRMED"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeWeakPassword       Code = "WEAK_PASSWORD"
	CodeUserExists         Code = "USER_EXISTS"

	// CodeProviderError covers provider responses that carried a message we
	// have no specific mapping for. The original message rides along in
	// Details for logging, never for display.
	CodeProviderError Code = "PROVIDER_ERROR"

	// CodeUnknownError covers everything else: malformed responses, decode
	// failures, values that are not errors in any recognized shape.
	CodeUnknownError Code = "UNKNOWN_ERROR"

	// CodeNetworkError covers transport failures: DNS, refused connections,
	// timeouts. The provider was never reached or never answered.
	CodeNetworkError Code = "NETWORK_ERROR"
)

// AuthError is the single failure type the rest of the application sees for
// auth flows. Handlers display Message verbatim; Details carries the raw
// provider text for logs and stays out of rendered pages.
type AuthError struct {
	Code    Code
	Message string
	Status  int
	Details string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ProviderError is a failure response from the identity provider: the
// message from the response body plus the HTTP status it arrived with.
// Translate turns these into AuthErrors; nothing above the client layer
// should handle ProviderError directly.
type ProviderError struct {
	Message string
	Status  int
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return e.Message
}

// translation maps a literal provider message onto a code, display message,
// and status. Matching is a case-sensitive substring test, same as the
// retry denylist, so a provider prefix or suffix around a known phrase
// still lands on the right code.
type translation struct {
	match   string
	code    Code
	status  int
	message string
}

var translations = []translation{
	{"Invalid login credentials", CodeInvalidCredentials, http.StatusUnauthorized, "Incorrect email or password."},
	{"Email not confirmed", CodeEmailNotConfirmed, http.StatusUnauthorized, "Please confirm your email address before signing in."},
	{"User not found", CodeUserNotFound, http.StatusNotFound, "No account found for that email address."},
	{"Too many requests", CodeRateLimited, http.StatusTooManyRequests, "Too many attempts. Please wait a moment and try again."},
	{"Password should be at least 6 characters", CodeWeakPassword, http.StatusBadRequest, "Passwords must be at least 6 characters."},
	{"User already registered", CodeUserExists, http.StatusConflict, "An account with that email already exists."},
}

// Translate normalizes any error from an auth flow into an *AuthError.
// It is total: any input produces a usable result, and translating an
// already-translated error returns it unchanged. Translate(nil) is nil.
//
// Classification order: provider responses with a recognized message map
// through the literal table; unrecognized provider messages become
// CodeProviderError with the original text in Details; transport failures
// become CodeNetworkError; everything else becomes CodeUnknownError.
func Translate(err error) *AuthError {
	if err == nil {
		return nil
	}

	var aerr *AuthError
	if errors.As(err, &aerr) {
		return aerr
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		for _, t := range translations {
			if strings.Contains(perr.Message, t.match) {
				return &AuthError{
					Code:    t.code,
					Message: t.message,
					Status:  t.status,
					Details: perr.Message,
				}
			}
		}
		status := perr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return &AuthError{
			Code:    CodeProviderError,
			Message: "The sign-in service reported a problem. Please try again.",
			Status:  status,
			Details: perr.Message,
		}
	}

	if isTransportError(err) {
		return &AuthError{
			Code:    CodeNetworkError,
			Message: "Could not reach the sign-in service. Check your connection and try again.",
			Status:  http.StatusServiceUnavailable,
			Details: err.Error(),
		}
	}

	return &AuthError{
		Code:    CodeUnknownError,
		Message: "Something went wrong. Please try again.",
		Status:  http.StatusInternalServerError,
		Details: err.Error(),
	}
}

// isTransportError reports whether the error came from the network layer
// rather than from a provider response.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
