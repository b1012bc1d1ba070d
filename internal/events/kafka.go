package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const headerEventType = "event_type"

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e OrderEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(e.OrderID), // keeps one order's events in one partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event for order %s: %w", e.Type, e.OrderID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads order events and hands them to a Handler.
type KafkaConsumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  *logrus.Logger
}

func NewKafkaConsumer(groupID string, handler Handler, logger *logrus.Logger, brokers ...string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &KafkaConsumer{reader: reader, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.processMessage(ctx)
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (c *KafkaConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.WithError(err).Error("error reading order event")
		return
	}

	e, err := decodeMessage(m)
	if err != nil {
		c.logger.WithError(err).WithField("offset", m.Offset).Warn("skipping malformed order event")
		return
	}

	if err := c.handler.Handle(ctx, e); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"event_type": e.Type,
			"order_id":   e.OrderID,
		}).Error("order event handler failed")
	}
}

func decodeMessage(m kafka.Message) (OrderEvent, error) {
	var e OrderEvent
	if err := json.Unmarshal(m.Value, &e); err != nil {
		return e, fmt.Errorf("parse message: %w", err)
	}
	for _, h := range m.Headers {
		if h.Key == headerEventType {
			e.Type = Type(h.Value)
		}
	}
	if e.Type == "" {
		return e, errors.New("missing event_type header")
	}
	return e, nil
}
