// Package auth binds provider sessions to browser sessions. The hosted
// identity provider owns accounts and credentials; this package owns the
// mapping from an opaque browser cookie token to the provider session it
// authenticates, the persistence of that mapping, and the refresh policy
// that keeps it alive.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tradewindhq/tradewind/internal/authlog"
	"github.com/tradewindhq/tradewind/internal/identity"
)

// browserTokenBytes is the entropy of a browser session token.
// 32 bytes = 256 bits, hex-encoded to 64 characters.
const browserTokenBytes = 32

// ErrCallbackDisabled is returned by AdoptTokens when session detection on
// the provider redirect URL is turned off in config.
var ErrCallbackDisabled = errors.New("auth: session detection in callback URLs is disabled")

// Service is the single entry point for authentication flows. Handlers call
// these methods — they never touch the session store or the provider client
// directly.
type Service interface {
	// SignIn authenticates credentials and binds a new browser session.
	SignIn(ctx context.Context, src authlog.Source, email, password string) (token string, sess *identity.Session, err error)

	// SignUp registers an account. Depending on provider settings the new
	// account is signed in immediately or parked behind email confirmation.
	SignUp(ctx context.Context, src authlog.Source, input SignUpInput) (*SignUpOutcome, error)

	// SignOut destroys the browser session locally and revokes it at the
	// provider. Idempotent: an absent or already-destroyed session is not
	// an error.
	SignOut(ctx context.Context, src authlog.Source, token string) error

	// ResetPassword triggers the provider's out-of-band reset flow. It
	// ALWAYS returns nil so callers cannot leak whether the account
	// exists; failures are logged and recorded out-of-band only.
	ResetPassword(ctx context.Context, src authlog.Source, email string) error

	// Current returns the session bound to token, restored from the store
	// without re-authenticating. Tokens nearing expiry are refreshed
	// transparently when auto-refresh is on; expired sessions without a
	// usable refresh token are cleared and reported as absent.
	Current(ctx context.Context, token string) (*identity.Session, error)

	// UpdateProfile changes the profile fields on the account behind the
	// session and keeps the stored session in step.
	UpdateProfile(ctx context.Context, src authlog.Source, token string, input identity.ProfileParams) (*identity.User, error)

	// AdoptTokens binds a browser session from tokens delivered on the
	// provider's redirect callback (email confirmation, OAuth). Refused
	// with ErrCallbackDisabled when detection is off.
	AdoptTokens(ctx context.Context, src authlog.Source, accessToken, refreshToken string) (string, *identity.Session, error)

	// RefreshExpiring sweeps the store and refreshes every session whose
	// access token expires within the configured leeway. Returns how many
	// sessions were refreshed.
	RefreshExpiring(ctx context.Context) (int, error)

	// ActiveSessions reports how many browser sessions are currently live.
	ActiveSessions(ctx context.Context) (int, error)
}

// Config holds the session policy knobs.
type Config struct {
	// SessionTTL bounds how long a browser session lives in the store.
	SessionTTL time.Duration

	// AutoRefreshToken enables transparent refresh of provider tokens
	// nearing expiry, both on access and in the background sweep.
	AutoRefreshToken bool

	// RefreshLeeway is how close to expiry a refresh is attempted.
	RefreshLeeway time.Duration

	// DetectSessionInURL enables AdoptTokens for redirect callbacks.
	DetectSessionInURL bool
}

// service implements Service.
//
// Concurrency: operations on the SAME browser token are serialized through
// a per-token lock, so a sign-out can never race a refresh of the session
// it is destroying. Operations on distinct tokens do not block each other.
// Events are recorded at operation completion, inside the lock, so the
// recorded order is completion order.
type service struct {
	provider Provider
	store    identity.SessionStore
	recorder authlog.Recorder
	cfg      Config
	locks    keyedLocks
}

// NewService creates the auth service.
func NewService(provider Provider, store identity.SessionStore, recorder authlog.Recorder, cfg Config) Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 720 * time.Hour
	}
	if cfg.RefreshLeeway <= 0 {
		cfg.RefreshLeeway = 5 * time.Minute
	}
	return &service{
		provider: provider,
		store:    store,
		recorder: recorder,
		cfg:      cfg,
	}
}

// SignIn authenticates against the provider and binds a new browser session.
// A failed attempt leaves any existing session for other tokens untouched.
func (s *service) SignIn(ctx context.Context, src authlog.Source, email, password string) (string, *identity.Session, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		authErr := identity.Translate(err)
		s.record(ctx, authlog.EventSignIn, src, nil, email, authErr)
		return "", nil, authErr
	}

	token, err := s.bind(ctx, sess)
	if err != nil {
		s.record(ctx, authlog.EventSignIn, src, &sess.User, email, identity.Translate(err))
		return "", nil, err
	}

	s.record(ctx, authlog.EventSignIn, src, &sess.User, email, nil)
	return token, sess, nil
}

// SignUp registers a new account with the provider.
func (s *service) SignUp(ctx context.Context, src authlog.Source, input SignUpInput) (*SignUpOutcome, error) {
	result, err := s.provider.SignUp(ctx, identity.SignUpParams{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		authErr := identity.Translate(err)
		s.record(ctx, authlog.EventSignUp, src, nil, input.Email, authErr)
		return nil, authErr
	}

	outcome := &SignUpOutcome{
		User:             result.User,
		ConfirmationSent: result.ConfirmationSent,
	}

	// Immediate-session providers sign the account in right away.
	if result.Session != nil {
		token, err := s.bind(ctx, result.Session)
		if err != nil {
			s.record(ctx, authlog.EventSignUp, src, &result.User, input.Email, identity.Translate(err))
			return nil, err
		}
		outcome.Token = token
		outcome.Session = result.Session
	}

	s.record(ctx, authlog.EventSignUp, src, &result.User, input.Email, nil)
	return outcome, nil
}

// SignOut destroys the session bound to token. Calling it with no live
// session is a no-op, not an error, so double sign-outs are harmless.
func (s *service) SignOut(ctx context.Context, src authlog.Source, token string) error {
	if token == "" {
		return nil
	}

	unlock := s.locks.lock(token)
	defer unlock()

	sess, err := s.store.Get(ctx, token)
	if errors.Is(err, identity.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading session for sign-out: %w", err)
	}

	// Revoke at the provider first; a revocation failure still destroys
	// the local session so the browser is signed out either way.
	if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
		slog.Warn("provider sign-out failed, destroying local session anyway",
			slog.String("user_id", sess.User.ID),
			slog.Any("error", identity.Translate(err)),
		)
	}

	if err := s.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	s.record(ctx, authlog.EventSignOut, src, &sess.User, sess.User.Email, nil)
	return nil
}

// ResetPassword triggers the provider's reset email. The return value is
// always nil: the page rendered for "account exists" and "no such account"
// must be indistinguishable, so the raw outcome stays in the logs.
func (s *service) ResetPassword(ctx context.Context, src authlog.Source, email string) error {
	err := s.provider.ResetPassword(ctx, email)
	if err != nil {
		authErr := identity.Translate(err)
		slog.Warn("password reset request failed",
			slog.String("code", string(authErr.Code)),
		)
		s.record(ctx, authlog.EventPasswordReset, src, nil, email, authErr)
		return nil
	}

	s.record(ctx, authlog.EventPasswordReset, src, nil, email, nil)
	return nil
}

// Current restores the session bound to token from the store.
func (s *service) Current(ctx context.Context, token string) (*identity.Session, error) {
	if token == "" {
		return nil, identity.ErrSessionNotFound
	}

	unlock := s.locks.lock(token)
	defer unlock()

	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Expired access token: refresh if policy and material allow,
	// otherwise the session is gone.
	if sess.Expired(now) {
		if !s.cfg.AutoRefreshToken || sess.RefreshToken == "" {
			_ = s.store.Delete(ctx, token)
			return nil, identity.ErrSessionNotFound
		}
		refreshed, err := s.refreshLocked(ctx, token, sess)
		if err != nil {
			_ = s.store.Delete(ctx, token)
			return nil, identity.ErrSessionNotFound
		}
		return refreshed, nil
	}

	// Still valid but inside the leeway window: refresh opportunistically,
	// keeping the current session when the refresh fails.
	if s.cfg.AutoRefreshToken && sess.RefreshToken != "" && sess.ExpiresWithin(now, s.cfg.RefreshLeeway) {
		if refreshed, err := s.refreshLocked(ctx, token, sess); err == nil {
			return refreshed, nil
		}
	}

	return sess, nil
}

// UpdateProfile changes the account's profile fields at the provider and
// mirrors the change into the stored session.
func (s *service) UpdateProfile(ctx context.Context, src authlog.Source, token string, input identity.ProfileParams) (*identity.User, error) {
	unlock := s.locks.lock(token)
	defer unlock()

	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.provider.UpdateUser(ctx, sess.AccessToken, input)
	if err != nil {
		authErr := identity.Translate(err)
		s.record(ctx, authlog.EventProfileUpdate, src, &sess.User, sess.User.Email, authErr)
		return nil, authErr
	}

	sess.User = *user
	if err := s.store.Put(ctx, token, sess, s.cfg.SessionTTL); err != nil {
		return nil, fmt.Errorf("storing updated session: %w", err)
	}

	s.record(ctx, authlog.EventProfileUpdate, src, user, user.Email, nil)
	return user, nil
}

// AdoptTokens validates tokens delivered on the provider's redirect
// callback and binds them to a new browser session.
func (s *service) AdoptTokens(ctx context.Context, src authlog.Source, accessToken, refreshToken string) (string, *identity.Session, error) {
	if !s.cfg.DetectSessionInURL {
		return "", nil, ErrCallbackDisabled
	}

	// The /user call both validates the token and yields the account.
	user, err := s.provider.User(ctx, accessToken)
	if err != nil {
		authErr := identity.Translate(err)
		s.record(ctx, authlog.EventSignIn, src, nil, "", authErr)
		return "", nil, authErr
	}

	sess := &identity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *user,
	}
	if exp, err := identity.TokenExpiry(accessToken); err == nil {
		sess.ExpiresAt = exp
	}

	token, err := s.bind(ctx, sess)
	if err != nil {
		return "", nil, err
	}

	s.record(ctx, authlog.EventSignIn, src, user, user.Email, nil)
	return token, sess, nil
}

// RefreshExpiring is the background sweep: every stored session expiring
// within the leeway window gets a fresh token pair. Sessions the provider
// refuses to refresh and that have already expired are cleared.
func (s *service) RefreshExpiring(ctx context.Context) (int, error) {
	if !s.cfg.AutoRefreshToken {
		return 0, nil
	}

	tokens, err := s.store.Tokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing sessions for refresh sweep: %w", err)
	}

	refreshed := 0
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}

		func() {
			unlock := s.locks.lock(token)
			defer unlock()

			sess, err := s.store.Get(ctx, token)
			if err != nil {
				return
			}
			if sess.RefreshToken == "" || !sess.ExpiresWithin(time.Now(), s.cfg.RefreshLeeway) {
				return
			}

			if _, err := s.refreshLocked(ctx, token, sess); err != nil {
				if sess.Expired(time.Now()) {
					_ = s.store.Delete(ctx, token)
				}
				return
			}
			refreshed++
		}()
	}
	return refreshed, nil
}

// ActiveSessions implements Service.
func (s *service) ActiveSessions(ctx context.Context) (int, error) {
	tokens, err := s.store.Tokens(ctx)
	if err != nil {
		return 0, err
	}
	return len(tokens), nil
}

// refreshLocked exchanges the session's refresh token for a fresh pair and
// stores the result. Caller must hold the token's lock.
func (s *service) refreshLocked(ctx context.Context, token string, old *identity.Session) (*identity.Session, error) {
	fresh, err := s.provider.Refresh(ctx, old.RefreshToken)
	if err != nil {
		authErr := identity.Translate(err)
		s.record(ctx, authlog.EventSessionRefresh, authlog.Source{}, &old.User, old.User.Email, authErr)
		return nil, authErr
	}

	// Providers may omit the user object on refresh grants.
	if fresh.User.ID == "" {
		fresh.User = old.User
	}

	if err := s.store.Put(ctx, token, fresh, s.cfg.SessionTTL); err != nil {
		return nil, fmt.Errorf("storing refreshed session: %w", err)
	}

	s.record(ctx, authlog.EventSessionRefresh, authlog.Source{}, &fresh.User, fresh.User.Email, nil)
	return fresh, nil
}

// bind generates a browser token and stores the session under it.
func (s *service) bind(ctx context.Context, sess *identity.Session) (string, error) {
	token, err := newBrowserToken()
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, token, sess, s.cfg.SessionTTL); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}

// record emits one auth event. Failures inside the recorder are its own
// problem; record never returns an error into the auth flow.
func (s *service) record(ctx context.Context, eventType authlog.EventType, src authlog.Source, user *identity.User, email string, authErr *identity.AuthError) {
	if s.recorder == nil {
		return
	}

	event := authlog.NewEvent(eventType, src)
	event.Email = email
	if user != nil {
		event.UserID = user.ID
		event.Provider = user.Provider
		if event.Email == "" {
			event.Email = user.Email
		}
	}
	if authErr != nil {
		event.ErrorCode = string(authErr.Code)
	}

	s.recorder.Record(ctx, event)
}

// newBrowserToken generates a cryptographically random session token.
func newBrowserToken() (string, error) {
	b := make([]byte, browserTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// --- Per-token locking ---

// keyedLocks serializes operations per browser token. Lock entries are
// reference-counted and removed once the last holder releases them, so the
// map never grows with dead tokens.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the lock for key and returns its release func.
func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*lockEntry)
	}
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
