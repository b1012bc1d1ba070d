package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupSQLite(t *testing.T) *Ledger {
	cred := &Credentials{
		Driver:            DriverSQLite,
		DSN:               ":memory:",
		MigrationsDirPath: "./migrations",
	}
	l, err := NewLedger(cred)
	require.NoError(t, err)
	require.NoError(t, l.RunMigrations(cred))
	t.Cleanup(func() { l.Close() })
	return l
}

func setupPostgres(t *testing.T) *Ledger {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cred := &Credentials{Driver: DriverPostgres, DSN: dsn, MigrationsDirPath: "./migrations"}
	l, err := NewLedger(cred)
	require.NoError(t, err)
	require.NoError(t, l.RunMigrations(cred))
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecord_DuplicateIsIgnored(t *testing.T) {
	for name, setup := range map[string]func(*testing.T) *Ledger{
		"sqlite":   setupSQLite,
		"postgres": setupPostgres,
	} {
		t.Run(name, func(t *testing.T) {
			l := setup(t)
			ctx := context.Background()
			ev := PaymentEvent{
				Provider:          "mercadopago",
				ProviderPaymentID: "123456",
				OrderID:           "order-1",
				Status:            "approved",
				Amount:            149.5,
			}

			recorded, err := l.Record(ctx, ev)
			require.NoError(t, err)
			assert.True(t, recorded)

			recorded, err = l.Record(ctx, ev)
			require.NoError(t, err)
			assert.False(t, recorded)

			// same id from another provider is a different payment
			ev.Provider = "paypal"
			recorded, err = l.Record(ctx, ev)
			require.NoError(t, err)
			assert.True(t, recorded)

			events, err := l.ListByOrder(ctx, "order-1")
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, "mercadopago", events[0].Provider)
			assert.Equal(t, 149.5, events[0].Amount)
			assert.False(t, events[0].ReceivedAt.IsZero())
		})
	}
}

func TestOrderFor(t *testing.T) {
	l := setupSQLite(t)
	ctx := context.Background()

	_, err := l.Record(ctx, PaymentEvent{Provider: "paypal", ProviderPaymentID: "PP-1", OrderID: "order-a", Status: "COMPLETED"})
	require.NoError(t, err)

	orderID, err := l.OrderFor(ctx, "paypal", "PP-1")
	require.NoError(t, err)
	assert.Equal(t, "order-a", orderID)

	_, err = l.OrderFor(ctx, "mercadopago", "PP-1")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestRecord_ConcurrentDeliveriesRecordOnce(t *testing.T) {
	l := setupSQLite(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		recorded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Record(ctx, PaymentEvent{Provider: "mercadopago", ProviderPaymentID: "dup", OrderID: "o", Status: "approved"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				recorded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, recorded)
}

func TestRecord_RequiresReference(t *testing.T) {
	l := setupSQLite(t)
	_, err := l.Record(context.Background(), PaymentEvent{Provider: "paypal"})
	assert.Error(t, err)
}

func TestListByOrder_Empty(t *testing.T) {
	l := setupSQLite(t)
	events, err := l.ListByOrder(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestNewLedger_UnknownDriver(t *testing.T) {
	_, err := NewLedger(&Credentials{Driver: "mysql"})
	assert.ErrorContains(t, err, fmt.Sprintf("%q", "mysql"))
}
