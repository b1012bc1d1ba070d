package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
)

var (
	ErrCartNotFound     = fmt.Errorf("cart %w", domain.ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("item in cart %w", domain.ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrFeaturedNotFound = fmt.Errorf("featured item %w", domain.ErrNotFound)
	ErrDuplicate        = fmt.Errorf("record %w", domain.ErrConflict)

	// ErrStaleOrder means the order changed between read and write.
	ErrStaleOrder = errors.New("order was modified concurrently")
)

// CartRepository defines the interface for cart data operations
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	SetShippingAddress(ctx context.Context, userID string, addr domain.ShippingAddress) error
	SetPaymentMethod(ctx context.Context, userID string, method domain.PaymentMethod) error
	DeleteCart(ctx context.Context, userID string) error
}

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Search(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error)
	Categories(ctx context.Context) ([]string, error)
	// DecrementStock atomically takes qty units, failing with
	// *domain.OutOfStockError when fewer are available.
	DecrementStock(ctx context.Context, productID string, qty int) error
	IncrementStock(ctx context.Context, productID string, qty int) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	// SaveTransition persists payment/delivery fields only if the stored
	// order is still in state from; otherwise it returns ErrStaleOrder.
	SaveTransition(ctx context.Context, o *domain.Order, from domain.OrderStatus) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type FeaturedRepository interface {
	Create(ctx context.Context, f *domain.FeaturedItem) error
	Update(ctx context.Context, f *domain.FeaturedItem) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.FeaturedItem, error)
	ListActive(ctx context.Context) ([]domain.FeaturedItem, error)
	List(ctx context.Context) ([]domain.FeaturedItem, error)
}
