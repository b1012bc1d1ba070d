package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicoirigoyen/e-commerce/internal/cache"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/sirupsen/logrus"
)

type cartDeleter interface {
	DeleteCart(ctx context.Context, userID string) error
}

// CartCleaner empties the buyer's cart once an order has been placed.
type CartCleaner struct {
	repo   cartDeleter
	cache  cache.CartCache
	logger *logrus.Logger
}

func NewCartCleaner(repo cartDeleter, c cache.CartCache, logger *logrus.Logger) *CartCleaner {
	return &CartCleaner{repo: repo, cache: c, logger: logger}
}

func (c *CartCleaner) Handle(ctx context.Context, e OrderEvent) error {
	if e.Type != OrderCreated {
		return nil
	}
	if e.UserID == "" {
		return errors.New("order.created event without user_id")
	}

	if err := c.repo.DeleteCart(ctx, e.UserID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := c.cache.Delete(ctx, e.UserID); err != nil {
		// the entry expires on its own
		c.logger.WithContext(ctx).WithError(err).WithField("user_id", e.UserID).Warn("failed to evict cart cache")
	}

	c.logger.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":  e.UserID,
		"order_id": e.OrderID,
	}).Debug("cart cleared after checkout")
	return nil
}
