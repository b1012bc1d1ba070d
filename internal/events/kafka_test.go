package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/logging"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

func setupKafka(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestKafka_PublishAndConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := setupKafka(t)
	createTopic(t, broker, Topic)

	var (
		mu  sync.Mutex
		got []OrderEvent
	)
	handler := HandlerFunc(func(_ context.Context, e OrderEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})

	consumer := NewKafkaConsumer("storefront-test", handler, logging.Discard(), broker)
	defer consumer.Close()
	go consumer.Run(ctx)

	pub := NewKafkaPublisher(broker)
	defer pub.Close()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(ctx, OrderEvent{Type: OrderCreated, OrderID: "o1", UserID: "u1", TotalPrice: 149.5, OccurredAt: at}))
	require.NoError(t, pub.Publish(ctx, OrderEvent{Type: OrderPaid, OrderID: "o1", UserID: "u1", TotalPrice: 149.5, OccurredAt: at}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 30*time.Second, 500*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, OrderCreated, got[0].Type)
	assert.Equal(t, OrderPaid, got[1].Type)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, 149.5, got[0].TotalPrice)
	assert.Assert(t, got[0].OccurredAt.Equal(at))
}
