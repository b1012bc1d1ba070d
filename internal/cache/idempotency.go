package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

type RedisIdempotencyStore struct {
	client redis.UniversalClient
}

func NewRedisIdempotencyStore(client redis.UniversalClient) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, userID, key string, ttl time.Duration) (string, bool, error) {
	k := idempotencyKey(userID, key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return "", true, nil
	}

	existing, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller retry
		return "", false, ErrKeyInFlight
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	if existing == pendingMarker {
		return "", false, ErrKeyInFlight
	}
	return existing, false, nil
}

func (s *RedisIdempotencyStore) Bind(ctx context.Context, userID, key, orderID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, idempotencyKey(userID, key), orderID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, userID, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func idempotencyKey(userID, key string) string {
	return keyPrefix + "checkout:" + userID + ":" + key
}
