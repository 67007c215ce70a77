package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testVaultSecret = "store-test-secret-key"

func newTestRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store, err := NewRedisSessionStore(rdb, testVaultSecret)
	if err != nil {
		t.Fatalf("NewRedisSessionStore failed: %v", err)
	}
	return store, mr
}

func testSession(userID string) *Session {
	return &Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User: User{
			ID:        userID,
			Email:     userID + "@example.com",
			Role:      RoleUser,
			FirstName: "Alice",
			LastName:  "Ray",
			Provider:  "email",
		},
	}
}

// --- Redis Store Tests ---

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	sess := testSession("user-123")

	if err := store.Put(ctx, "tok-1", sess, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.User.ID != "user-123" {
		t.Errorf("expected user-123, got %s", got.User.ID)
	}
	if got.AccessToken != sess.AccessToken || got.RefreshToken != sess.RefreshToken {
		t.Error("token pair did not survive the round trip")
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Errorf("expected expiry %v, got %v", sess.ExpiresAt, got.ExpiresAt)
	}
	if got.User.Role != RoleUser {
		t.Errorf("expected role user, got %s", got.User.Role)
	}
}

func TestRedisSessionStore_EncryptedAtRest(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	sess := testSession("user-123")

	if err := store.Put(ctx, "tok-1", sess, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, err := mr.Get(StorageKeyPrefix + "tok-1")
	if err != nil {
		t.Fatalf("reading raw redis value: %v", err)
	}
	if strings.Contains(raw, sess.AccessToken) || strings.Contains(raw, "user-123") {
		t.Error("session stored in the clear")
	}
}

func TestRedisSessionStore_GetMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestRedisSessionStore_TTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "tok-1", testSession("user-123"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after TTL, got: %v", err)
	}
}

func TestRedisSessionStore_Delete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "tok-1", testSession("user-123"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got: %v", err)
	}

	// Deleting a token that never existed is not an error.
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("expected nil deleting absent token, got: %v", err)
	}
}

func TestRedisSessionStore_CorruptedEntry(t *testing.T) {
	store, mr := newTestRedisStore(t)

	mr.Set(StorageKeyPrefix+"tok-1", "not-a-sealed-session")

	if _, err := store.Get(context.Background(), "tok-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected corrupted entry to read as absent, got: %v", err)
	}
}

func TestRedisSessionStore_Tokens(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for _, token := range []string{"tok-a", "tok-b", "tok-c"} {
		if err := store.Put(ctx, token, testSession("user-"+token), time.Hour); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	tokens, err := store.Tokens(ctx)
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
	seen := make(map[string]bool)
	for _, token := range tokens {
		seen[token] = true
	}
	for _, want := range []string{"tok-a", "tok-b", "tok-c"} {
		if !seen[want] {
			t.Errorf("expected token %s in listing", want)
		}
	}
}

// Restarting the application means a fresh store instance over the same
// Redis. A persisted session must come back for the same browser token
// with the same user.
func TestRedisSessionStore_SurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb1 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store1, err := NewRedisSessionStore(rdb1, testVaultSecret)
	if err != nil {
		t.Fatalf("creating first store: %v", err)
	}
	if err := store1.Put(ctx, "tok-1", testSession("user-123"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	rdb1.Close()

	rdb2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb2.Close()
	store2, err := NewRedisSessionStore(rdb2, testVaultSecret)
	if err != nil {
		t.Fatalf("creating second store: %v", err)
	}

	got, err := store2.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if got.User.ID != "user-123" {
		t.Errorf("expected user-123 after restart, got %s", got.User.ID)
	}
}

func TestRedisSessionStore_SecretRotationInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store1, _ := NewRedisSessionStore(rdb, "old-secret")
	if err := store1.Put(ctx, "tok-1", testSession("user-123"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	store2, _ := NewRedisSessionStore(rdb, "new-secret")
	if _, err := store2.Get(ctx, "tok-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected sessions sealed under the old secret to read as absent, got: %v", err)
	}
}

// --- Memory Store Tests ---

func TestMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	if err := store.Put(ctx, "tok-1", testSession("user-123"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.User.ID != "user-123" {
		t.Errorf("expected user-123, got %s", got.User.ID)
	}
}

func TestMemorySessionStore_ReturnsCopy(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	if err := store.Put(ctx, "tok-1", testSession("user-123"), time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first, _ := store.Get(ctx, "tok-1")
	first.User.Email = "mutated@example.com"

	second, _ := store.Get(ctx, "tok-1")
	if second.User.Email != "user-123@example.com" {
		t.Error("mutating a returned session leaked into the store")
	}
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	// A negative TTL is already expired on arrival.
	if err := store.Put(ctx, "tok-1", testSession("user-123"), -time.Second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for expired entry, got: %v", err)
	}
}

func TestMemorySessionStore_DeleteAndTokens(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	store.Put(ctx, "tok-a", testSession("user-a"), time.Hour)
	store.Put(ctx, "tok-b", testSession("user-b"), time.Hour)
	store.Put(ctx, "tok-c", testSession("user-c"), -time.Second) // already expired

	if err := store.Delete(ctx, "tok-b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "absent"); err != nil {
		t.Errorf("expected nil deleting absent token, got: %v", err)
	}

	tokens, err := store.Tokens(ctx)
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "tok-a" {
		t.Errorf("expected only tok-a to remain, got %v", tokens)
	}
}
