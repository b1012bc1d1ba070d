package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/metrics"
	"github.com/nicoirigoyen/e-commerce/internal/payment"
	"github.com/nicoirigoyen/e-commerce/internal/pricing"
	"github.com/sirupsen/logrus"
)

type PaymentServiceConfig struct {
	Currency    string
	PublicURL   string // where Mercado Pago reaches this API
	FrontendURL string
}

// PaymentService reconciles Mercado Pago payments with orders.
type PaymentService struct {
	orders *OrderService
	mp     MercadoPagoGateway
	cfg    PaymentServiceConfig
	logger *logrus.Logger
}

func NewPaymentService(orders *OrderService, mp MercadoPagoGateway, cfg PaymentServiceConfig, logger *logrus.Logger) *PaymentService {
	return &PaymentService{orders: orders, mp: mp, cfg: cfg, logger: logger}
}

type CheckoutPreference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"initPoint"`
	SandboxInitPoint string `json:"sandboxInitPoint,omitempty"`
}

// CreatePreference opens a Mercado Pago checkout for an unpaid order. The
// preference carries shipping and tax as separate lines so that it adds up
// to the order total.
func (s *PaymentService) CreatePreference(ctx context.Context, actor domain.Actor, orderID string) (*CheckoutPreference, error) {
	order, err := s.orders.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, &domain.InvalidStateError{From: order.Status(), Command: "pay"}
	}

	items := make([]payment.PreferenceItem, 0, len(order.Items)+2)
	for _, it := range order.Items {
		items = append(items, payment.PreferenceItem{
			Title:      it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			CurrencyID: s.cfg.Currency,
		})
	}
	if order.ShippingPrice > 0 {
		items = append(items, payment.PreferenceItem{Title: "Envío", UnitPrice: order.ShippingPrice, Quantity: 1, CurrencyID: s.cfg.Currency})
	}
	if order.TaxPrice > 0 {
		items = append(items, payment.PreferenceItem{Title: "Impuestos", UnitPrice: order.TaxPrice, Quantity: 1, CurrencyID: s.cfg.Currency})
	}

	returnURL := s.cfg.PublicURL + "/api/payments/mercadopago/return"
	pref, err := s.mp.CreatePreference(ctx, payment.PreferenceInput{
		OrderID:         order.ID,
		Items:           items,
		BackURLs:        payment.BackURLs{Success: returnURL, Pending: returnURL, Failure: returnURL},
		NotificationURL: s.cfg.PublicURL + "/api/payments/mercadopago/webhook",
	})
	if err != nil {
		return nil, err
	}
	return &CheckoutPreference{ID: pref.ID, InitPoint: pref.InitPoint, SandboxInitPoint: pref.SandboxInitPoint}, nil
}

// HandleNotification processes a webhook delivery. Only payment topics are
// looked up; everything else is acknowledged without work.
func (s *PaymentService) HandleNotification(ctx context.Context, topic, paymentID string) error {
	if topic != "" && topic != "payment" {
		return nil
	}
	if paymentID == "" {
		return &domain.ValidationError{Field: "data.id", Message: "is required"}
	}
	_, err := s.reconcile(ctx, paymentID)
	return err
}

// HandleReturn verifies the payment behind a browser redirect and returns
// the frontend page to send the buyer to.
func (s *PaymentService) HandleReturn(ctx context.Context, paymentID, status, externalReference string) string {
	verified := false
	if paymentID != "" && paymentID != "null" {
		p, err := s.reconcile(ctx, paymentID)
		if p != nil {
			status = p.Status
			if p.ExternalReference != "" {
				externalReference = p.ExternalReference
			}
		}
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("payment_id", paymentID).Warn("mercadopago return could not be verified")
		} else {
			verified = true
		}
	}
	// the webhook settles unverified payments; never show success for them
	if !verified && status == payment.MPStatusApproved {
		status = payment.MPStatusPending
	}

	page := "/failure"
	switch status {
	case payment.MPStatusApproved:
		page = "/success"
	case payment.MPStatusPending, payment.MPStatusInProcess:
		page = "/pending"
	}

	target := s.cfg.FrontendURL + page
	if externalReference != "" {
		target += "?orderId=" + url.QueryEscape(externalReference)
	}
	return target
}

// reconcile fetches the payment from Mercado Pago and, when approved for
// the full order amount, marks its order paid.
func (s *PaymentService) reconcile(ctx context.Context, paymentID string) (*payment.MPPayment, error) {
	p, err := s.mp.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"payment_id": paymentID,
		"order_id":   p.ExternalReference,
		"status":     p.Status,
	})

	if p.Status != payment.MPStatusApproved {
		log.Info("mercadopago payment not approved yet")
		return p, nil
	}
	if p.ExternalReference == "" {
		return p, errors.New("approved payment without external_reference")
	}

	order, err := s.orders.orders.GetByID(ctx, p.ExternalReference)
	if err != nil {
		return p, err
	}
	if p.TransactionAmount+0.005 < order.TotalPrice {
		metrics.PaymentsConfirmed.WithLabelValues(payment.ProviderMercadoPago, "rejected").Inc()
		log.WithFields(logrus.Fields{
			"paid":     p.TransactionAmount,
			"expected": order.TotalPrice,
		}).Warn("mercadopago payment amount below order total")
		p.Status = payment.MPStatusRejected
		return p, fmt.Errorf("payment %s covers %.2f of %.2f", paymentID, p.TransactionAmount, order.TotalPrice)
	}

	result := domain.PaymentResult{
		Provider:     payment.ProviderMercadoPago,
		ID:           paymentID,
		Status:       p.Status,
		UpdateTime:   p.DateApproved,
		EmailAddress: p.Payer.Email,
	}
	if _, err := s.orders.ConfirmPayment(ctx, order.ID, result, pricing.Round2(p.TransactionAmount)); err != nil {
		return p, err
	}
	return p, nil
}
