package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nicoirigoyen/e-commerce/internal/cache"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/events"
	"github.com/nicoirigoyen/e-commerce/internal/ledger"
	"github.com/nicoirigoyen/e-commerce/internal/payment"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockCartRepository struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepository) cart(userID string) *domain.Cart {
	c, ok := m.carts[userID]
	if !ok {
		c = &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
		m.carts[userID] = c
	}
	return c
}

func (m *mockCartRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (m *mockCartRepository) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c := m.cart(userID)
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i] = item
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

func (m *mockCartRepository) UpdateItemQuantity(_ context.Context, userID, productID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return repository.ErrItemNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return repository.ErrItemNotFound
}

func (m *mockCartRepository) RemoveItem(_ context.Context, userID, productID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockCartRepository) SetShippingAddress(_ context.Context, userID string, addr domain.ShippingAddress) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart(userID).ShippingAddress = &addr
	return nil
}

func (m *mockCartRepository) SetPaymentMethod(_ context.Context, userID string, method domain.PaymentMethod) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart(userID).PaymentMethod = method
	return nil
}

func (m *mockCartRepository) DeleteCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.carts[userID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

type mockProductRepository struct {
	m        sync.RWMutex
	products map[string]*domain.Product
	err      error
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: map[string]*domain.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) stock(id string) int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.products[id].CountInStock
}

func (m *mockProductRepository) Create(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepository) Update(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepository) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	cp.Reviews = append([]domain.Review(nil), p.Reviews...)
	return &cp, nil
}

func (m *mockProductRepository) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	for _, p := range m.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(context.Context) ([]domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := []domain.Product{}
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockProductRepository) Search(_ context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	all, _ := m.List(context.Background())
	return &domain.ProductPage{Products: all, CountProducts: int64(len(all)), Page: f.Page, Pages: 1}, nil
}

func (m *mockProductRepository) Categories(context.Context) ([]string, error) {
	return []string{}, nil
}

func (m *mockProductRepository) DecrementStock(_ context.Context, productID string, qty int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.CountInStock < qty {
		return &domain.OutOfStockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.CountInStock}
	}
	p.CountInStock -= qty
	return nil
}

func (m *mockProductRepository) IncrementStock(_ context.Context, productID string, qty int) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.CountInStock += qty
	return nil
}

type mockOrderRepository struct {
	m         sync.RWMutex
	orders    map[string]domain.Order
	createErr error
	// staleOnce makes the next SaveTransition fail as if another writer won
	staleOnce bool
	// staleAlways makes every SaveTransition lose
	staleAlways bool
	saves     int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: map[string]domain.Order{}}
}

func (m *mockOrderRepository) put(o *domain.Order) {
	m.m.Lock()
	defer m.m.Unlock()
	m.orders[o.ID] = *o
}

func (m *mockOrderRepository) Create(_ context.Context, o *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.orders[o.ID]; ok {
		return repository.ErrDuplicate
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *mockOrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (m *mockOrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) List(context.Context) ([]domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOrderRepository) SaveTransition(_ context.Context, o *domain.Order, from domain.OrderStatus) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.staleOnce || m.staleAlways {
		m.staleOnce = false
		return repository.ErrStaleOrder
	}
	stored, ok := m.orders[o.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if stored.Status() != from {
		return repository.ErrStaleOrder
	}
	m.orders[o.ID] = *o
	m.saves++
	return nil
}

func (m *mockOrderRepository) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type recordingPublisher struct {
	m      sync.RWMutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.m.RLock()
	defer p.m.RUnlock()
	out := []events.Type{}
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type mockPayPal struct {
	m          sync.RWMutex
	configured bool
	orders     map[string]*payment.PayPalOrder
	created    []string
	err        error
}

func (m *mockPayPal) Configured() bool { return m.configured }
func (m *mockPayPal) ClientID() string { return "sb" }
func (m *mockPayPal) Currency() string { return "USD" }

func (m *mockPayPal) CreateOrder(_ context.Context, orderID string, amount float64) (*payment.PayPalOrder, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, orderID)
	return &payment.PayPalOrder{ID: "PP-" + orderID, Status: "CREATED"}, nil
}

func (m *mockPayPal) GetOrder(_ context.Context, id string) (*payment.PayPalOrder, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, &domain.UpstreamPaymentError{Provider: payment.ProviderPayPal, Err: repository.ErrOrderNotFound}
	}
	return o, nil
}

type mockMercadoPago struct {
	m        sync.RWMutex
	payments map[string]*payment.MPPayment
	prefs    []payment.PreferenceInput
	lookups  int
	err      error
}

func (m *mockMercadoPago) CreatePreference(_ context.Context, in payment.PreferenceInput) (*payment.Preference, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.prefs = append(m.prefs, in)
	return &payment.Preference{ID: "pref-" + in.OrderID, InitPoint: "https://mp/init/" + in.OrderID}, nil
}

func (m *mockMercadoPago) GetPayment(_ context.Context, id string) (*payment.MPPayment, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.payments[id]
	if !ok {
		return nil, &domain.UpstreamPaymentError{Provider: payment.ProviderMercadoPago, Err: repository.ErrOrderNotFound}
	}
	cp := *p
	return &cp, nil
}

func setupLedger(t *testing.T) *ledger.Ledger {
	cred := &ledger.Credentials{
		Driver:            ledger.DriverSQLite,
		DSN:               ":memory:",
		MigrationsDirPath: "../ledger/migrations",
	}
	l, err := ledger.NewLedger(cred)
	require.NoError(t, err)
	require.NoError(t, l.RunMigrations(cred))
	t.Cleanup(func() { l.Close() })
	return l
}

func setupIdempotency(t *testing.T) *cache.RedisIdempotencyStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisIdempotencyStore(client)
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}
