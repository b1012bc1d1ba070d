// Package events publishes order lifecycle events and dispatches them to
// in-process or Kafka consumers.
package events

import (
	"context"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
)

const Topic = "order-events"

type Type string

const (
	OrderCreated   Type = "order.created"
	OrderPaid      Type = "order.paid"
	OrderDelivered Type = "order.delivered"
)

// OrderEvent is the message payload. Type travels in the event_type header.
type OrderEvent struct {
	Type       Type      `json:"-"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	TotalPrice float64   `json:"total_price"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewOrderEvent(t Type, o *domain.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		OccurredAt: at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, e OrderEvent) error
}

type HandlerFunc func(ctx context.Context, e OrderEvent) error

func (f HandlerFunc) Handle(ctx context.Context, e OrderEvent) error {
	return f(ctx, e)
}
