package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// storageKeyPrefix is the fixed Redis namespace carts live under.
const storageKeyPrefix = "tradewind.cart:"

// Store persists carts between requests, keyed by the cart cookie ID.
type Store interface {
	// Get returns the cart stored under id. An absent cart comes back as
	// an empty cart, not an error — a missing cart IS an empty cart.
	Get(ctx context.Context, id string) (*Cart, error)

	// Put stores the cart with the given TTL, resetting the idle clock.
	Put(ctx context.Context, cart *Cart, ttl time.Duration) error

	// Delete removes the cart. Deleting an absent cart is not an error.
	Delete(ctx context.Context, id string) error
}

// redisStore implements Store with JSON values in Redis.
type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed cart store.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

// Get implements Store.
func (s *redisStore) Get(ctx context.Context, id string) (*Cart, error) {
	raw, err := s.rdb.Get(ctx, storageKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		// A corrupt entry is unrecoverable; start the cart over rather
		// than failing every page for this browser.
		return &Cart{ID: id}, nil
	}
	return &cart, nil
}

// Put implements Store.
func (s *redisStore) Put(ctx context.Context, cart *Cart, ttl time.Duration) error {
	cart.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := s.rdb.Set(ctx, storageKeyPrefix+cart.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("storing cart: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, storageKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}
