package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StorageKeyPrefix is the fixed namespace every persisted session lives
// under. Changing it orphans all existing sessions, which signs every
// browser out at once.
const StorageKeyPrefix = "tradewind.auth.token:"

// ErrSessionNotFound is returned by SessionStore.Get when no session exists
// for the given browser token (or the stored one has expired).
var ErrSessionNotFound = errors.New("identity: session not found")

// SessionStore persists provider sessions between requests, keyed by the
// opaque browser session token. Implementations must be safe for concurrent
// use.
type SessionStore interface {
	// Put stores the session under token with the given TTL, replacing any
	// existing entry.
	Put(ctx context.Context, token string, sess *Session, ttl time.Duration) error

	// Get returns the session stored under token, or ErrSessionNotFound.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes the session stored under token. Deleting an absent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// Tokens lists every browser token with a live session. Used by the
	// background refresh sweep.
	Tokens(ctx context.Context) ([]string, error)
}

// --- Redis-backed store ---

// RedisSessionStore keeps sessions in Redis, encrypted at rest, so they
// survive application restarts and are shared across replicas.
type RedisSessionStore struct {
	rdb   *redis.Client
	vault *vault
}

// NewRedisSessionStore creates a Redis-backed session store. The secret
// derives the at-rest encryption key.
func NewRedisSessionStore(rdb *redis.Client, secret string) (*RedisSessionStore, error) {
	v, err := newVault(secret)
	if err != nil {
		return nil, err
	}
	return &RedisSessionStore{rdb: rdb, vault: v}, nil
}

// Put implements SessionStore.
func (s *RedisSessionStore) Put(ctx context.Context, token string, sess *Session, ttl time.Duration) error {
	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	sealed, err := s.vault.seal(plain)
	if err != nil {
		return fmt.Errorf("sealing session: %w", err)
	}
	if err := s.rdb.Set(ctx, StorageKeyPrefix+token, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Get implements SessionStore.
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	sealed, err := s.rdb.Get(ctx, StorageKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	plain, err := s.vault.open(sealed)
	if err != nil {
		// Undecryptable entries (rotated secret, corrupted value) are
		// treated as absent rather than surfacing a crypto error to
		// every request that carries the stale cookie.
		return nil, ErrSessionNotFound
	}

	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Delete implements SessionStore.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, StorageKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Tokens implements SessionStore using SCAN so a large session set never
// blocks Redis the way KEYS would.
func (s *RedisSessionStore) Tokens(ctx context.Context) ([]string, error) {
	var tokens []string
	iter := s.rdb.Scan(ctx, 0, StorageKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		tokens = append(tokens, strings.TrimPrefix(iter.Val(), StorageKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning sessions: %w", err)
	}
	return tokens, nil
}

// --- In-memory store ---

// memoryEntry pairs a stored session with its expiry deadline.
type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory. Selected when
// session persistence is disabled: every restart signs all browsers out.
// Also the store of choice in tests.
type MemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]memoryEntry)}
}

// Put implements SessionStore.
func (s *MemorySessionStore) Put(_ context.Context, token string, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{sess: *sess, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Get implements SessionStore. Expired entries are lazily removed.
func (s *MemorySessionStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, token)
		return nil, ErrSessionNotFound
	}
	sess := entry.sess
	return &sess, nil
}

// Delete implements SessionStore.
func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// Tokens implements SessionStore.
func (s *MemorySessionStore) Tokens(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	tokens := make([]string, 0, len(s.entries))
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
