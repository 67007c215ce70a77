package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tradewindhq/tradewind/internal/authlog"
	"github.com/tradewindhq/tradewind/internal/identity"
)

// --- Mock Provider ---

// mockProvider implements Provider for testing.
type mockProvider struct {
	signInFn        func(ctx context.Context, email, password string) (*identity.Session, error)
	signUpFn        func(ctx context.Context, params identity.SignUpParams) (*identity.SignUpResult, error)
	signOutFn       func(ctx context.Context, accessToken string) error
	resetPasswordFn func(ctx context.Context, email string) error
	refreshFn       func(ctx context.Context, refreshToken string) (*identity.Session, error)
	userFn          func(ctx context.Context, accessToken string) (*identity.User, error)
	updateUserFn    func(ctx context.Context, accessToken string, params identity.ProfileParams) (*identity.User, error)
}

func (m *mockProvider) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return testSession("user-1", email), nil
}

func (m *mockProvider) SignUp(ctx context.Context, params identity.SignUpParams) (*identity.SignUpResult, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, params)
	}
	sess := testSession("user-new", params.Email)
	return &identity.SignUpResult{Session: sess, User: sess.User}, nil
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

func (m *mockProvider) ResetPassword(ctx context.Context, email string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(ctx, email)
	}
	return nil
}

func (m *mockProvider) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return testSession("user-1", "refreshed@example.com"), nil
}

func (m *mockProvider) User(ctx context.Context, accessToken string) (*identity.User, error) {
	if m.userFn != nil {
		return m.userFn(ctx, accessToken)
	}
	return &identity.User{ID: "user-1", Email: "user@example.com", Role: identity.RoleUser}, nil
}

func (m *mockProvider) UpdateUser(ctx context.Context, accessToken string, params identity.ProfileParams) (*identity.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, accessToken, params)
	}
	return &identity.User{ID: "user-1", Email: "user@example.com", Role: identity.RoleUser,
		FirstName: params.FirstName, LastName: params.LastName}, nil
}

// --- Capture Recorder ---

// captureRecorder collects recorded events in order.
type captureRecorder struct {
	mu     sync.Mutex
	events []authlog.Event
}

func (r *captureRecorder) Record(_ context.Context, event authlog.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *captureRecorder) all() []authlog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]authlog.Event(nil), r.events...)
}

// --- Helpers ---

func testSession(userID, email string) *identity.Session {
	return &identity.Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         identity.User{ID: userID, Email: email, Role: identity.RoleUser},
	}
}

func newTestService(provider Provider, store identity.SessionStore, rec authlog.Recorder) Service {
	return NewService(provider, store, rec, Config{
		SessionTTL:         time.Hour,
		AutoRefreshToken:   true,
		RefreshLeeway:      5 * time.Minute,
		DetectSessionInURL: true,
	})
}

var testSource = authlog.Source{UserAgent: "test-agent", Path: "/login"}

// --- Tests ---

func TestSignInBindsSession(t *testing.T) {
	store := identity.NewMemorySessionStore()
	rec := &captureRecorder{}
	svc := newTestService(&mockProvider{}, store, rec)

	token, sess, err := svc.SignIn(context.Background(), testSource, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a browser token")
	}
	if sess.User.ID != "user-1" {
		t.Fatalf("unexpected user: %+v", sess.User)
	}

	stored, err := store.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if stored.User.ID != "user-1" {
		t.Fatalf("stored wrong session: %+v", stored)
	}

	events := rec.all()
	if len(events) != 1 || events[0].Type != authlog.EventSignIn || events[0].Failed() {
		t.Fatalf("expected one successful sign_in event, got %+v", events)
	}
}

func TestSignInFailureRecordsTranslatedCode(t *testing.T) {
	rec := &captureRecorder{}
	svc := newTestService(&mockProvider{
		signInFn: func(context.Context, string, string) (*identity.Session, error) {
			return nil, &identity.ProviderError{Message: "Invalid login credentials", Status: 400}
		},
	}, identity.NewMemorySessionStore(), rec)

	_, _, err := svc.SignIn(context.Background(), testSource, "user@example.com", "wrong")
	var authErr *identity.AuthError
	if !errors.As(err, &authErr) || authErr.Code != identity.CodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}

	events := rec.all()
	if len(events) != 1 || events[0].ErrorCode != string(identity.CodeInvalidCredentials) {
		t.Fatalf("expected failed sign_in event, got %+v", events)
	}
}

// A restart is a new Service over the same store: the user comes back from
// Current without re-authenticating.
func TestSessionSurvivesRestartWithPersistentStore(t *testing.T) {
	store := identity.NewMemorySessionStore()

	first := newTestService(&mockProvider{}, store, authlog.NopRecorder{})
	token, _, err := first.SignIn(context.Background(), testSource, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	second := newTestService(&mockProvider{
		signInFn: func(context.Context, string, string) (*identity.Session, error) {
			t.Fatal("restarted client must not re-authenticate")
			return nil, nil
		},
	}, store, authlog.NopRecorder{})

	sess, err := second.Current(context.Background(), token)
	if err != nil {
		t.Fatalf("Current after restart: %v", err)
	}
	if sess.User.ID != "user-1" {
		t.Fatalf("expected same user after restart, got %+v", sess.User)
	}
}

func TestSignOutIsIdempotent(t *testing.T) {
	store := identity.NewMemorySessionStore()
	rec := &captureRecorder{}
	svc := newTestService(&mockProvider{}, store, rec)

	token, _, err := svc.SignIn(context.Background(), testSource, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if err := svc.SignOut(context.Background(), testSource, token); err != nil {
		t.Fatalf("first SignOut: %v", err)
	}
	if err := svc.SignOut(context.Background(), testSource, token); err != nil {
		t.Fatalf("second SignOut must not fail: %v", err)
	}
	if err := svc.SignOut(context.Background(), testSource, ""); err != nil {
		t.Fatalf("SignOut with no token must not fail: %v", err)
	}

	if _, err := store.Get(context.Background(), token); !errors.Is(err, identity.ErrSessionNotFound) {
		t.Fatalf("session should be gone, got %v", err)
	}

	// Exactly one sign_out recorded: the no-op calls changed nothing.
	signOuts := 0
	for _, ev := range rec.all() {
		if ev.Type == authlog.EventSignOut {
			signOuts++
		}
	}
	if signOuts != 1 {
		t.Fatalf("expected 1 sign_out event, got %d", signOuts)
	}
}

func TestSignOutDestroysLocalSessionWhenProviderFails(t *testing.T) {
	store := identity.NewMemorySessionStore()
	svc := newTestService(&mockProvider{
		signOutFn: func(context.Context, string) error {
			return &identity.ProviderError{Message: "service unavailable", Status: 503}
		},
	}, store, authlog.NopRecorder{})

	token, _, err := svc.SignIn(context.Background(), testSource, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := svc.SignOut(context.Background(), testSource, token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := store.Get(context.Background(), token); !errors.Is(err, identity.ErrSessionNotFound) {
		t.Fatalf("local session should be destroyed despite provider failure, got %v", err)
	}
}

func TestResetPasswordNeverLeaksAccountExistence(t *testing.T) {
	rec := &captureRecorder{}
	svc := newTestService(&mockProvider{
		resetPasswordFn: func(_ context.Context, email string) error {
			if email == "nonexistent@example.com" {
				return &identity.ProviderError{Message: "User not found", Status: 404}
			}
			return nil
		},
	}, identity.NewMemorySessionStore(), rec)

	if err := svc.ResetPassword(context.Background(), testSource, "nonexistent@example.com"); err != nil {
		t.Fatalf("ResetPassword must succeed for unknown accounts, got %v", err)
	}
	if err := svc.ResetPassword(context.Background(), testSource, "real@example.com"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// The raw outcome is still visible out-of-band in the event log.
	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 password_reset events, got %d", len(events))
	}
	if events[0].ErrorCode != string(identity.CodeUserNotFound) {
		t.Fatalf("failure should be recorded out-of-band, got %+v", events[0])
	}
	if events[1].Failed() {
		t.Fatalf("success should record cleanly, got %+v", events[1])
	}
}

func TestCurrentClearsExpiredSessionWithoutRefresh(t *testing.T) {
	store := identity.NewMemorySessionStore()
	svc := NewService(&mockProvider{}, store, authlog.NopRecorder{}, Config{
		SessionTTL:       time.Hour,
		AutoRefreshToken: false, // refresh disabled: expiry is final
	})

	sess := testSession("user-1", "user@example.com")
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Put(context.Background(), "tok", sess, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := svc.Current(context.Background(), "tok"); !errors.Is(err, identity.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for expired session, got %v", err)
	}
	if _, err := store.Get(context.Background(), "tok"); !errors.Is(err, identity.ErrSessionNotFound) {
		t.Fatalf("expired entry should be cleared from the store, got %v", err)
	}
}

func TestCurrentRefreshesExpiredSession(t *testing.T) {
	store := identity.NewMemorySessionStore()
	rec := &captureRecorder{}
	refreshCalls := 0
	svc := newTestService(&mockProvider{
		refreshFn: func(_ context.Context, refreshToken string) (*identity.Session, error) {
			refreshCalls++
			if refreshToken != "refresh-user-1" {
				t.Fatalf("unexpected refresh token %q", refreshToken)
			}
			fresh := testSession("user-1", "user@example.com")
			fresh.AccessToken = "access-fresh"
			return fresh, nil
		},
	}, store, rec)

	sess := testSession("user-1", "user@example.com")
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	if err := store.Put(context.Background(), "tok", sess, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := svc.Current(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.AccessToken != "access-fresh" {
		t.Fatalf("expected refreshed token, got %q", got.AccessToken)
	}
	if refreshCalls != 1 {
		t.Fatalf("expected 1 refresh call, got %d", refreshCalls)
	}

	events := rec.all()
	if len(events) != 1 || events[0].Type != authlog.EventSessionRefresh {
		t.Fatalf("expected session_refresh event, got %+v", events)
	}
	// Background-style refresh has no request: sentinel source recorded.
	if events[0].UserAgent != authlog.SourceServer || events[0].Path != authlog.SourceServer {
		t.Fatalf("expected server sentinel source, got %+v", events[0])
	}
}

func TestRefreshExpiringSweep(t *testing.T) {
	store := identity.NewMemorySessionStore()
	svc := newTestService(&mockProvider{}, store, authlog.NopRecorder{})

	// One session well within expiry, one inside the leeway window.
	healthy := testSession("user-1", "a@example.com")
	if err := store.Put(context.Background(), "tok-healthy", healthy, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	expiring := testSession("user-2", "b@example.com")
	expiring.ExpiresAt = time.Now().Add(time.Minute)
	if err := store.Put(context.Background(), "tok-expiring", expiring, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	refreshed, err := svc.RefreshExpiring(context.Background())
	if err != nil {
		t.Fatalf("RefreshExpiring: %v", err)
	}
	if refreshed != 1 {
		t.Fatalf("expected 1 refreshed session, got %d", refreshed)
	}
}

func TestAdoptTokensRefusedWhenDetectionDisabled(t *testing.T) {
	svc := NewService(&mockProvider{}, identity.NewMemorySessionStore(), authlog.NopRecorder{}, Config{
		SessionTTL:         time.Hour,
		DetectSessionInURL: false,
	})

	_, _, err := svc.AdoptTokens(context.Background(), testSource, "access", "refresh")
	if !errors.Is(err, ErrCallbackDisabled) {
		t.Fatalf("expected ErrCallbackDisabled, got %v", err)
	}
}

func TestAdoptTokensBindsValidatedSession(t *testing.T) {
	store := identity.NewMemorySessionStore()
	svc := newTestService(&mockProvider{
		userFn: func(_ context.Context, accessToken string) (*identity.User, error) {
			if accessToken != "callback-access" {
				t.Fatalf("unexpected access token %q", accessToken)
			}
			return &identity.User{ID: "user-9", Email: "cb@example.com", Role: identity.RoleUser}, nil
		},
	}, store, authlog.NopRecorder{})

	token, sess, err := svc.AdoptTokens(context.Background(), testSource, "callback-access", "callback-refresh")
	if err != nil {
		t.Fatalf("AdoptTokens: %v", err)
	}
	if sess.User.ID != "user-9" || sess.RefreshToken != "callback-refresh" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if _, err := store.Get(context.Background(), token); err != nil {
		t.Fatalf("adopted session not stored: %v", err)
	}
}

func TestUpdateProfileKeepsStoredSessionInStep(t *testing.T) {
	store := identity.NewMemorySessionStore()
	rec := &captureRecorder{}
	svc := newTestService(&mockProvider{}, store, rec)

	token, _, err := svc.SignIn(context.Background(), testSource, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	user, err := svc.UpdateProfile(context.Background(), testSource, token, identity.ProfileParams{
		FirstName: "Ada", LastName: "Lovelace",
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.FirstName != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}

	stored, err := store.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.User.FirstName != "Ada" || stored.User.LastName != "Lovelace" {
		t.Fatalf("stored session not updated: %+v", stored.User)
	}

	last := rec.all()[len(rec.all())-1]
	if last.Type != authlog.EventProfileUpdate {
		t.Fatalf("expected profile_update event, got %+v", last)
	}
}

// Same-token operations serialize; a slow sign-out cannot race the refresh
// of the session it is destroying, and the second sign-out sees the store
// state the first one left behind.
func TestSameTokenOperationsSerialize(t *testing.T) {
	store := identity.NewMemorySessionStore()

	providerEntered := make(chan struct{})
	releaseProvider := make(chan struct{})
	svc := newTestService(&mockProvider{
		signOutFn: func(context.Context, string) error {
			close(providerEntered)
			<-releaseProvider
			return nil
		},
	}, store, authlog.NopRecorder{})

	token, _, err := svc.SignIn(context.Background(), testSource, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- svc.SignOut(context.Background(), testSource, token)
	}()
	<-providerEntered

	// Current on the same token must block until the sign-out completes,
	// then see the destroyed session.
	currentDone := make(chan error, 1)
	go func() {
		_, err := svc.Current(context.Background(), token)
		currentDone <- err
	}()

	select {
	case <-currentDone:
		t.Fatal("Current on the same token should block behind sign-out")
	case <-time.After(50 * time.Millisecond):
	}

	// A DIFFERENT token is not blocked by the held lock.
	otherDone := make(chan struct{})
	go func() {
		_, _ = svc.Current(context.Background(), "unrelated-token")
		close(otherDone)
	}()
	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("operations on distinct tokens must not block each other")
	}

	close(releaseProvider)
	if err := <-done; err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if err := <-currentDone; !errors.Is(err, identity.ErrSessionNotFound) {
		t.Fatalf("Current after serialized sign-out should see no session, got %v", err)
	}
}

func TestSignUpWithConfirmationPending(t *testing.T) {
	rec := &captureRecorder{}
	svc := newTestService(&mockProvider{
		signUpFn: func(_ context.Context, params identity.SignUpParams) (*identity.SignUpResult, error) {
			return &identity.SignUpResult{
				User:             identity.User{ID: "user-new", Email: params.Email, Role: identity.RoleUser},
				ConfirmationSent: true,
			}, nil
		},
	}, identity.NewMemorySessionStore(), rec)

	outcome, err := svc.SignUp(context.Background(), testSource, SignUpInput{
		Email: "new@example.com", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if !outcome.ConfirmationSent || outcome.Token != "" {
		t.Fatalf("expected pending confirmation without a session, got %+v", outcome)
	}

	events := rec.all()
	if len(events) != 1 || events[0].Type != authlog.EventSignUp {
		t.Fatalf("expected sign_up event, got %+v", events)
	}
}
