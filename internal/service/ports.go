package service

import (
	"context"

	"github.com/nicoirigoyen/e-commerce/internal/ledger"
	"github.com/nicoirigoyen/e-commerce/internal/payment"
)

type PayPalGateway interface {
	Configured() bool
	ClientID() string
	Currency() string
	CreateOrder(ctx context.Context, orderID string, amount float64) (*payment.PayPalOrder, error)
	GetOrder(ctx context.Context, paypalOrderID string) (*payment.PayPalOrder, error)
}

type MercadoPagoGateway interface {
	CreatePreference(ctx context.Context, in payment.PreferenceInput) (*payment.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*payment.MPPayment, error)
}

// PaymentLedger records provider payments; Record reports false for a
// payment that was already recorded.
type PaymentLedger interface {
	Record(ctx context.Context, e ledger.PaymentEvent) (bool, error)
	OrderFor(ctx context.Context, provider, providerPaymentID string) (string, error)
}
