package cache

import (
	"context"
	"errors"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

// IdempotencyStore binds a client supplied key to the order it produced.
type IdempotencyStore interface {
	// Reserve claims key for the caller. When the key is already bound it
	// returns the stored order id and ok=false.
	Reserve(ctx context.Context, userID, key string, ttl time.Duration) (orderID string, ok bool, err error)
	Bind(ctx context.Context, userID, key, orderID string, ttl time.Duration) error
	Release(ctx context.Context, userID, key string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrKeyInFlight is returned while another request holds the same
	// idempotency key without having produced an order yet.
	ErrKeyInFlight = errors.New("idempotency key is being processed")
)
