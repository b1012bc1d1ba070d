package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nicoirigoyen/e-commerce/internal/cache"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/logging"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartStore struct {
	mu      sync.RWMutex
	carts   map[string]bool
	deleted []string
	err     error
}

func newMockCartStore(users ...string) *mockCartStore {
	m := &mockCartStore{carts: map[string]bool{}}
	for _, u := range users {
		m.carts[u] = true
	}
	return m
}

func (m *mockCartStore) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if !m.carts[userID] {
		return repository.ErrCartNotFound
	}
	delete(m.carts, userID)
	m.deleted = append(m.deleted, userID)
	return nil
}

func setupTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisCache(client), mr
}

func TestNewOrderEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o := &domain.Order{ID: "o1", UserID: "u1", Prices: domain.Prices{TotalPrice: 149.5}}

	e := NewOrderEvent(OrderPaid, o, at)
	assert.Equal(t, OrderEvent{Type: OrderPaid, OrderID: "o1", UserID: "u1", TotalPrice: 149.5, OccurredAt: at}, e)
}

func TestCartCleaner_ClearsCartAndCache(t *testing.T) {
	ctx := context.Background()
	store := newMockCartStore("u1")
	c, _ := setupTestCache(t)
	require.NoError(t, c.Set(ctx, "u1", &domain.Cart{UserID: "u1"}))

	cleaner := NewCartCleaner(store, c, logging.Discard())
	require.NoError(t, cleaner.Handle(ctx, OrderEvent{Type: OrderCreated, OrderID: "o1", UserID: "u1"}))

	assert.Equal(t, []string{"u1"}, store.deleted)
	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCartCleaner_MissingCartIsFine(t *testing.T) {
	c, _ := setupTestCache(t)
	cleaner := NewCartCleaner(newMockCartStore(), c, logging.Discard())

	assert.NoError(t, cleaner.Handle(context.Background(), OrderEvent{Type: OrderCreated, UserID: "ghost"}))
}

func TestCartCleaner_IgnoresOtherEvents(t *testing.T) {
	store := newMockCartStore("u1")
	c, _ := setupTestCache(t)
	cleaner := NewCartCleaner(store, c, logging.Discard())

	for _, typ := range []Type{OrderPaid, OrderDelivered} {
		require.NoError(t, cleaner.Handle(context.Background(), OrderEvent{Type: typ, UserID: "u1"}))
	}
	assert.Empty(t, store.deleted)
}

func TestCartCleaner_RepositoryError(t *testing.T) {
	store := newMockCartStore("u1")
	store.err = errors.New("mongo down")
	c, _ := setupTestCache(t)
	cleaner := NewCartCleaner(store, c, logging.Discard())

	err := cleaner.Handle(context.Background(), OrderEvent{Type: OrderCreated, UserID: "u1"})
	assert.ErrorContains(t, err, "mongo down")
}

func TestCartCleaner_CacheDownStillSucceeds(t *testing.T) {
	store := newMockCartStore("u1")
	c, mr := setupTestCache(t)
	mr.Close()
	cleaner := NewCartCleaner(store, c, logging.Discard())

	assert.NoError(t, cleaner.Handle(context.Background(), OrderEvent{Type: OrderCreated, UserID: "u1"}))
	assert.Equal(t, []string{"u1"}, store.deleted)
}

func TestLocalPublisher_DispatchesToAllHandlers(t *testing.T) {
	var got []string
	record := func(name string) Handler {
		return HandlerFunc(func(_ context.Context, e OrderEvent) error {
			got = append(got, name+":"+string(e.Type))
			return nil
		})
	}
	failing := HandlerFunc(func(context.Context, OrderEvent) error { return errors.New("boom") })

	p := NewLocalPublisher(logging.Discard(), record("a"), failing, record("b"))
	err := p.Publish(context.Background(), OrderEvent{Type: OrderCreated, OrderID: "o1"})

	require.NoError(t, err, "handler failures are logged, not returned")
	assert.Equal(t, []string{"a:order.created", "b:order.created"}, got)
	assert.NoError(t, p.Close())
}

func TestDecodeMessage(t *testing.T) {
	m := kafka.Message{
		Value:   []byte(`{"order_id":"o1","user_id":"u1","total_price":33,"occurred_at":"2024-03-01T12:00:00Z"}`),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte("order.created")}},
	}
	e, err := decodeMessage(m)
	require.NoError(t, err)
	assert.Equal(t, OrderCreated, e.Type)
	assert.Equal(t, "o1", e.OrderID)
	assert.Equal(t, 33.0, e.TotalPrice)

	_, err = decodeMessage(kafka.Message{Value: m.Value})
	assert.ErrorContains(t, err, "event_type")

	_, err = decodeMessage(kafka.Message{Value: []byte("{"), Headers: m.Headers})
	assert.ErrorContains(t, err, "parse message")
}
