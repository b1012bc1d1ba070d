package service

import (
	"context"
	"errors"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/cache"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/metrics"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	logger   *logrus.Logger
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository, cache cache.CartCache, logger *logrus.Logger) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithContext(ctx).WithError(err).Warn("cart cache get failed")
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{
				UserID:    userID,
				Items:     []domain.CartItem{},
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}
		if cart.Items == nil {
			cart.Items = []domain.CartItem{}
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				s.logger.WithError(errSet).WithField("user_id", userID).Warn("cart cache set failed")
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem adds quantity units of a product to the cart, snapshotting the
// product's current name, price and stock onto the line.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}
	total := quantity
	if line, ok := current.Item(productID); ok {
		total += line.Quantity
	}

	if err := checkStock(product, total); err != nil {
		return nil, err
	}

	item := domain.CartItem{
		ProductID:     product.ID,
		Name:          product.Name,
		Slug:          product.Slug,
		Image:         product.Image,
		UnitPrice:     product.Price,
		Quantity:      total,
		StockSnapshot: product.CountInStock,
	}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("repo add item failed")
		return nil, err
	}

	s.invalidateCache(userID)
	return s.loadCart(ctx, userID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(product, quantity); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("repo update item quantity failed")
		return nil, err
	}

	s.invalidateCache(userID)
	return s.loadCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("repo remove item failed")
		return nil, err
	}

	s.invalidateCache(userID)
	return s.loadCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.logger.WithContext(ctx).WithError(err).Error("repo delete cart failed")
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) SaveShippingAddress(ctx context.Context, userID string, addr domain.ShippingAddress) (*domain.Cart, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SetShippingAddress(ctx, userID, addr); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return s.loadCart(ctx, userID)
}

func (s *CartService) SavePaymentMethod(ctx context.Context, userID string, method domain.PaymentMethod) (*domain.Cart, error) {
	if !method.Valid() {
		return nil, &domain.ValidationError{Field: "paymentMethod", Message: "unknown payment method"}
	}
	if err := s.repo.SetPaymentMethod(ctx, userID, method); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return s.loadCart(ctx, userID)
}

// loadCart reads through to the repository after a write.
func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return cart, nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("cart cache invalidate failed")
	}
}

func checkStock(p *domain.Product, quantity int) error {
	if quantity > p.CountInStock {
		metrics.StockRejections.Inc()
		return &domain.OutOfStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: quantity,
			Available: p.CountInStock,
		}
	}
	return nil
}
