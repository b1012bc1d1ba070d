package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LocalPublisher delivers events synchronously to in-process handlers. It
// is used when no Kafka brokers are configured.
type LocalPublisher struct {
	handlers []Handler
	logger   *logrus.Logger
}

func NewLocalPublisher(logger *logrus.Logger, handlers ...Handler) *LocalPublisher {
	return &LocalPublisher{handlers: handlers, logger: logger}
}

// Publish never fails: handler errors are logged, as a Kafka consumer would.
func (p *LocalPublisher) Publish(ctx context.Context, e OrderEvent) error {
	for _, h := range p.handlers {
		if err := h.Handle(ctx, e); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
				"event_type": e.Type,
				"order_id":   e.OrderID,
			}).Error("order event handler failed")
		}
	}
	return nil
}

func (p *LocalPublisher) Close() error { return nil }
