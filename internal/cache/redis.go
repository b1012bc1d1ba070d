package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "storefront:"

	defaultCartTTL    = 15 * time.Minute
	defaultCartJitter = 5 * time.Minute
)

// RedisCache stores carts as JSON. Entries expire after the base TTL plus
// a random jitter so carts written together do not expire together.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	jitter time.Duration
}

type Option func(*RedisCache)

// WithTTL overrides the default 15m TTL and 5m jitter. A zero jitter
// disables it.
func WithTTL(ttl, jitter time.Duration) Option {
	return func(c *RedisCache) {
		c.ttl = ttl
		c.jitter = jitter
	}
}

func NewRedisCache(client redis.UniversalClient, opts ...Option) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    defaultCartTTL,
		jitter: defaultCartJitter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	raw, err := c.client.Get(ctx, cartKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	cart := new(domain.Cart)
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return cart, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := c.client.Set(ctx, cartKey(userID), payload, c.expiry()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete is a no-op for a cart that is not cached.
func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *RedisCache) expiry() time.Duration {
	if c.jitter <= 0 {
		return c.ttl
	}
	return c.ttl + rand.N(c.jitter)
}

func cartKey(userID string) string {
	return keyPrefix + "cart:" + userID
}
