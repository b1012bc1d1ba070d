// Package ledger keeps an append-only record of payment confirmations.
//
// A payment reference is accepted once per provider: the unique
// (provider, provider_payment_id) constraint turns duplicate webhook or
// redirect deliveries into no-ops.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrPaymentNotFound = errors.New("payment not recorded")

type Credentials struct {
	Driver            string
	DSN               string
	MigrationsDirPath string // parent dir holding one subdir per driver
}

type PaymentEvent struct {
	Provider          string
	ProviderPaymentID string
	OrderID           string
	Status            string
	Amount            float64
	ReceivedAt        time.Time
}

type Ledger struct {
	db     *sql.DB
	driver string
}

func NewLedger(cred *Credentials) (*Ledger, error) {
	switch cred.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", cred.Driver)
	}

	db, err := sql.Open(cred.Driver, cred.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	if cred.Driver == DriverSQLite {
		// a single connection keeps :memory: databases and writers consistent
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
	}
	return &Ledger{db: db, driver: cred.Driver}, nil
}

func (l *Ledger) RunMigrations(cred *Credentials) error {
	var (
		driver database.Driver
		err    error
	)
	switch l.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(l.db, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(l.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", filepath.Join(cred.MigrationsDirPath, l.driver)),
		l.driver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// Record stores e unless the same provider payment was already recorded.
// recorded is false for a duplicate delivery.
func (l *Ledger) Record(ctx context.Context, e PaymentEvent) (recorded bool, err error) {
	if e.Provider == "" || e.ProviderPaymentID == "" {
		return false, errors.New("payment event needs provider and payment id")
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payment_events (provider, provider_payment_id, order_id, status, amount, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, provider_payment_id) DO NOTHING
	`
	res, err := l.db.ExecContext(ctx, query,
		e.Provider, e.ProviderPaymentID, e.OrderID, e.Status, e.Amount, e.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record payment event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// OrderFor returns the order a provider payment was recorded against.
func (l *Ledger) OrderFor(ctx context.Context, provider, providerPaymentID string) (string, error) {
	query := `
		SELECT order_id
		FROM payment_events
		WHERE provider = $1 AND provider_payment_id = $2
	`
	var orderID string
	err := l.db.QueryRowContext(ctx, query, provider, providerPaymentID).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPaymentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up payment event: %w", err)
	}
	return orderID, nil
}

func (l *Ledger) ListByOrder(ctx context.Context, orderID string) ([]PaymentEvent, error) {
	query := `
		SELECT provider, provider_payment_id, order_id, status, amount, received_at
		FROM payment_events
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := l.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment events: %w", err)
	}
	defer rows.Close()

	events := []PaymentEvent{}
	for rows.Next() {
		var e PaymentEvent
		if err := rows.Scan(&e.Provider, &e.ProviderPaymentID, &e.OrderID, &e.Status, &e.Amount, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment events: %w", err)
	}
	return events, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
