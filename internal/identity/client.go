// Package identity is Tradewind's client for the hosted identity provider.
//
// The provider owns accounts, passwords, and token issuance; Tradewind never
// sees a password hash. This package wraps the provider's HTTP API with
// typed requests and responses, normalizes every failure into an AuthError
// via Translate, retries transient failures with linear backoff, and
// persists the resulting sessions encrypted at rest.
//
// Packages above this one (internal/auth) deal exclusively in Session,
// User, and AuthError values; raw provider responses stop here.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root of the provider's auth API,
	// e.g. "https://project.example.com/auth/v1".
	BaseURL string

	// APIKey is sent with every request in the apikey header.
	APIKey string

	// Timeout bounds each individual HTTP request. Zero selects 10s.
	Timeout time.Duration

	// Retry controls how transient failures are retried.
	Retry RetryConfig

	// HTTPClient overrides the transport, primarily for tests. When set,
	// Timeout is ignored in favor of the supplied client's own.
	HTTPClient *http.Client
}

// Client is a typed HTTP client for the identity provider. It is stateless
// and safe for concurrent use; sessions live in a SessionStore, not here.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   RetryConfig
}

// NewClient validates the config and constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("provider base URL must not be empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing provider base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		retry:   cfg.Retry,
	}, nil
}

// SignUpParams is the payload for creating an account.
type SignUpParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileParams is the payload for updating profile metadata.
type ProfileParams struct {
	FirstName string
	LastName  string
}

// SignUpResult is the outcome of a sign-up call. Depending on provider
// settings a new account is either signed in immediately (Session set) or
// parked until the user clicks the confirmation email.
type SignUpResult struct {
	Session          *Session
	User             User
	ConfirmationSent bool
}

// tokenResponse is the provider's token grant response shape, shared by the
// password and refresh_token grants.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// SignIn exchanges credentials for a session using the password grant.
// Transient failures are retried; wrong credentials fail immediately.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var sess *Session
	err := retryDo(ctx, c.retry, func(ctx context.Context) error {
		var tr tokenResponse
		if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, body, "", &tr); err != nil {
			return err
		}
		sess = c.sessionFromGrant(tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SignUp creates a new account. The profile names travel in the metadata
// block so the provider stores them alongside the account.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	body := map[string]any{
		"email":    params.Email,
		"password": params.Password,
		"data": map[string]string{
			"first_name": params.FirstName,
			"last_name":  params.LastName,
		},
	}

	var result *SignUpResult
	err := retryDo(ctx, c.retry, func(ctx context.Context) error {
		var raw json.RawMessage
		if err := c.do(ctx, http.MethodPost, "/signup", nil, body, "", &raw); err != nil {
			return err
		}

		// With email confirmation disabled the provider returns a full
		// token grant; with it enabled, just the pending user object.
		var probe struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return fmt.Errorf("decoding sign-up response: %w", err)
		}

		if probe.AccessToken != "" {
			var tr tokenResponse
			if err := json.Unmarshal(raw, &tr); err != nil {
				return fmt.Errorf("decoding sign-up grant: %w", err)
			}
			sess := c.sessionFromGrant(tr)
			result = &SignUpResult{Session: sess, User: sess.User}
			return nil
		}

		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			return fmt.Errorf("decoding sign-up user: %w", err)
		}
		normalizeUser(&user)
		result = &SignUpResult{User: user, ConfirmationSent: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SignOut revokes the access token at the provider. A token the provider no
// longer recognizes counts as already signed out, not as a failure.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return retryDo(ctx, c.retry, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodPost, "/logout", nil, nil, accessToken, nil)
		var perr *ProviderError
		if errors.As(err, &perr) && (perr.Status == http.StatusUnauthorized || perr.Status == http.StatusNotFound) {
			return nil
		}
		return err
	})
}

// ResetPassword asks the provider to send a password recovery email.
// Callers above the client layer must not reveal the outcome to the
// browser; the always-success policy lives in internal/auth.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return retryDo(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/recover", nil, body, "", nil)
	})
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var sess *Session
	err := retryDo(ctx, c.retry, func(ctx context.Context) error {
		var tr tokenResponse
		if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}}, body, "", &tr); err != nil {
			return err
		}
		sess = c.sessionFromGrant(tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// User fetches the account behind an access token. Also serves as the
// validity check when adopting tokens from a callback URL.
func (c *Client) User(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := retryDo(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, "/user", nil, nil, accessToken, &user)
	})
	if err != nil {
		return nil, err
	}
	normalizeUser(&user)
	return &user, nil
}

// UpdateUser updates the profile metadata on the account behind the token.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, params ProfileParams) (*User, error) {
	body := map[string]any{
		"data": map[string]string{
			"first_name": params.FirstName,
			"last_name":  params.LastName,
		},
	}

	var user User
	err := retryDo(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPut, "/user", nil, body, accessToken, &user)
	})
	if err != nil {
		return nil, err
	}
	normalizeUser(&user)
	return &user, nil
}

// Health probes provider reachability with a single attempt, no retries.
// Wired into /healthz and the startup check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, "", nil)
}

// sessionFromGrant builds a Session from a token grant response. Expiry
// comes from expires_in when present, otherwise from the token's own exp
// claim.
func (c *Client) sessionFromGrant(tr tokenResponse) *Session {
	expiresAt := time.Time{}
	if tr.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else if exp, err := TokenExpiry(tr.AccessToken); err == nil {
		expiresAt = exp
	}

	user := tr.User
	normalizeUser(&user)

	return &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}
}

// normalizeUser forces the role through ParseRole so absent or unknown
// provider roles always land on RoleUser.
func normalizeUser(u *User) {
	u.Role = ParseRole(string(u.Role))
}

// do executes one HTTP request against the provider. Non-2xx responses are
// decoded into ProviderError when the body carries a message; transport
// failures are returned as-is for Translate to classify.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, bearer string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding provider response: %w", err)
		}
	}
	return nil
}

// decodeError turns a non-2xx provider response into an error. Bodies with
// a recognizable message field become ProviderError so Translate can map
// them; anything else becomes a plain error that translates to
// CodeUnknownError.
func decodeError(status int, body []byte) error {
	var payload struct {
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		ErrorField       string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		msg := payload.Message
		if msg == "" {
			msg = payload.ErrorDescription
		}
		if msg == "" {
			msg = payload.ErrorField
		}
		if msg != "" {
			return &ProviderError{Message: msg, Status: status}
		}
	}
	return fmt.Errorf("provider returned status %d", status)
}
