package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nicoirigoyen/e-commerce/internal/cache"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/events"
	"github.com/nicoirigoyen/e-commerce/internal/ledger"
	"github.com/nicoirigoyen/e-commerce/internal/metrics"
	"github.com/nicoirigoyen/e-commerce/internal/payment"
	"github.com/nicoirigoyen/e-commerce/internal/pricing"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	ProviderManual        = "manual"
)

type OrderDeps struct {
	Orders         repository.OrderRepository
	Products       repository.ProductRepository
	Carts          repository.CartRepository
	Idempotency    cache.IdempotencyStore
	Calculator     *pricing.Calculator
	Publisher      events.Publisher
	PayPal         PayPalGateway
	Ledger         PaymentLedger
	Logger         *logrus.Logger
	WhatsAppPhone  string
	IdempotencyTTL time.Duration
}

type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	carts     repository.CartRepository
	idem      cache.IdempotencyStore
	calc      *pricing.Calculator
	publisher events.Publisher
	paypal    PayPalGateway
	ledger    PaymentLedger
	logger    *logrus.Logger
	phone     string
	idemTTL   time.Duration
	now       func() time.Time
}

func NewOrderService(d OrderDeps) *OrderService {
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &OrderService{
		orders:    d.Orders,
		products:  d.Products,
		carts:     d.Carts,
		idem:      d.Idempotency,
		calc:      d.Calculator,
		publisher: d.Publisher,
		paypal:    d.PayPal,
		ledger:    d.Ledger,
		logger:    d.Logger,
		phone:     d.WhatsAppPhone,
		idemTTL:   ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrderRequest overrides the selections saved on the cart when set.
type PlaceOrderRequest struct {
	IdempotencyKey  string
	ShippingAddress *domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
}

// PlaceOrder turns the user's cart into an order: prices the cart snapshot,
// reserves stock line by line and persists the order. The cart itself is
// cleared by the order.created consumer.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*domain.Order, error) {
	if req.IdempotencyKey != "" {
		existingID, ok, err := s.idem.Reserve(ctx, userID, req.IdempotencyKey, s.idemTTL)
		if errors.Is(err, cache.ErrKeyInFlight) {
			return nil, fmt.Errorf("order for this Idempotency-Key is being created: %w", domain.ErrConflict)
		}
		if err != nil {
			return nil, err
		}
		if !ok {
			return s.orders.GetByID(ctx, existingID)
		}
	}

	order, err := s.placeOrder(ctx, userID, req)
	if req.IdempotencyKey != "" {
		if err != nil {
			if errRelease := s.idem.Release(ctx, userID, req.IdempotencyKey); errRelease != nil {
				s.logger.WithContext(ctx).WithError(errRelease).Warn("failed to release idempotency key")
			}
		} else if errBind := s.idem.Bind(ctx, userID, req.IdempotencyKey, order.ID, s.idemTTL); errBind != nil {
			s.logger.WithContext(ctx).WithError(errBind).Warn("failed to bind idempotency key")
		}
	}
	return order, err
}

func (s *OrderService) placeOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*domain.Order, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, &domain.ValidationError{Field: "orderItems", Message: "cart is empty"}
	}

	addr := cart.ShippingAddress
	if req.ShippingAddress != nil {
		addr = req.ShippingAddress
	}
	if addr == nil {
		return nil, &domain.ValidationError{Field: "shippingAddress", Message: "is required"}
	}
	method := cart.PaymentMethod
	if req.PaymentMethod != "" {
		method = req.PaymentMethod
	}

	prices := s.calc.Price(cart.Items)
	order, err := domain.NewOrder(uuid.NewString(), userID, cart.Items, *addr, method, prices, s.now())
	if err != nil {
		return nil, err
	}

	reserved, err := s.reserveStock(ctx, order.Items)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseStock(ctx, reserved)
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	metrics.OrdersPlaced.WithLabelValues(order.PaymentMethod.String()).Inc()
	metrics.OrderValue.Observe(order.TotalPrice)
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_id":       order.ID,
		"user_id":        userID,
		"payment_method": order.PaymentMethod,
		"total_price":    order.TotalPrice,
	}).Info("order placed")

	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// reserveStock decrements stock for every line, undoing the lines already
// taken when one of them fails.
func (s *OrderService) reserveStock(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	reserved := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if err := s.products.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			if errors.Is(err, domain.ErrOutOfStock) {
				metrics.StockRejections.Inc()
			}
			s.releaseStock(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, it)
	}
	return reserved, nil
}

func (s *OrderService) releaseStock(ctx context.Context, items []domain.OrderItem) {
	for _, it := range items {
		if err := s.products.IncrementStock(context.WithoutCancel(ctx), it.ProductID, it.Quantity); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
				"product_id": it.ProductID,
				"quantity":   it.Quantity,
			}).Error("failed to release stock")
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.VisibleTo(actor) {
		return nil, &domain.AuthorizationError{Action: "view this order"}
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "list all orders"}
	}
	return s.orders.List(ctx)
}

// PaymentConfirmation is what the client reports after a PayPal capture, or
// what an admin records for a manual (WhatsApp) payment.
type PaymentConfirmation struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

// Pay marks an order paid from a client-side confirmation. PayPal captures
// are verified against PayPal when credentials are configured; other
// methods can only be marked paid by an admin.
func (s *OrderService) Pay(ctx context.Context, actor domain.Actor, orderID string, c PaymentConfirmation) (*domain.Order, error) {
	if c.ID == "" {
		return nil, &domain.ValidationError{Field: "id", Message: "is required"}
	}
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	result := domain.PaymentResult{
		Provider:     payment.ProviderPayPal,
		ID:           c.ID,
		Status:       c.Status,
		UpdateTime:   c.UpdateTime,
		EmailAddress: c.EmailAddress,
	}

	amount := order.TotalPrice
	if !order.PaymentMethod.CapturedByPayPal() {
		if !actor.IsAdmin {
			return nil, &domain.AuthorizationError{Action: "mark " + order.PaymentMethod.String() + " orders paid"}
		}
		result.Provider = ProviderManual
	} else if s.paypal.Configured() {
		pp, err := s.paypal.GetOrder(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if pp.Status != payment.PayPalStatusCompleted {
			metrics.PaymentsConfirmed.WithLabelValues(payment.ProviderPayPal, "rejected").Inc()
			return nil, &domain.ValidationError{Field: "id", Message: "paypal order " + c.ID + " is " + pp.Status}
		}
		captured, err := s.capturedAmount(order, pp)
		if err != nil {
			metrics.PaymentsConfirmed.WithLabelValues(payment.ProviderPayPal, "rejected").Inc()
			return nil, err
		}
		amount = captured
		result.Status = pp.Status
		if pp.Payer.EmailAddress != "" {
			result.EmailAddress = pp.Payer.EmailAddress
		}
	}

	return s.ConfirmPayment(ctx, order.ID, result, amount)
}

// capturedAmount sums the purchase units of a PayPal order. Every unit must
// reference this order and be in the PayPal currency, and together they
// must cover the order total.
func (s *OrderService) capturedAmount(order *domain.Order, pp *payment.PayPalOrder) (float64, error) {
	currency := s.paypal.Currency()
	total := decimal.Zero
	for _, pu := range pp.PurchaseUnits {
		if pu.ReferenceID != "" && pu.ReferenceID != order.ID {
			return 0, &domain.ValidationError{Field: "id", Message: "paypal order belongs to another order"}
		}
		if currency != "" && !strings.EqualFold(pu.Amount.CurrencyCode, currency) {
			return 0, &domain.ValidationError{Field: "id", Message: fmt.Sprintf("paypal order is in %q, expected %s", pu.Amount.CurrencyCode, currency)}
		}
		v, err := decimal.NewFromString(pu.Amount.Value)
		if err != nil {
			return 0, &domain.ValidationError{Field: "id", Message: fmt.Sprintf("paypal order has an invalid amount %q", pu.Amount.Value)}
		}
		total = total.Add(v)
	}

	if total.LessThan(decimal.NewFromFloat(order.TotalPrice)) {
		return 0, &domain.ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("paypal order covers %s of %s", total.StringFixed(2), pricing.FormatAmount(order.TotalPrice)),
		}
	}
	captured, _ := total.Float64()
	return captured, nil
}

// ConfirmPayment records a provider payment in the ledger and marks the
// order paid. Repeated confirmations for the same payment, or a second
// payment for a paid order, leave the order unchanged. A payment already
// recorded against another order is rejected.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID string, result domain.PaymentResult, amount float64) (*domain.Order, error) {
	recorded, err := s.ledger.Record(ctx, ledger.PaymentEvent{
		Provider:          result.Provider,
		ProviderPaymentID: result.ID,
		OrderID:           orderID,
		Status:            result.Status,
		Amount:            amount,
		ReceivedAt:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !recorded {
		owner, err := s.ledger.OrderFor(ctx, result.Provider, result.ID)
		if err != nil {
			return nil, err
		}
		if owner != orderID {
			metrics.PaymentsConfirmed.WithLabelValues(result.Provider, "rejected").Inc()
			return nil, &domain.ValidationError{Field: "id", Message: "payment " + result.ID + " was already applied to another order"}
		}
	}

	// applied even for a duplicate so a delivery that failed after the
	// ledger write is completed by the retry
	order, changed, err := s.transition(ctx, orderID, domain.MarkPaid{Result: result, At: s.now()})
	if err != nil {
		return nil, err
	}

	outcome := "applied"
	switch {
	case !recorded:
		outcome = "duplicate"
	case !changed:
		outcome = "already_paid"
	}
	metrics.PaymentsConfirmed.WithLabelValues(result.Provider, outcome).Inc()
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_id":   orderID,
		"provider":   result.Provider,
		"payment_id": result.ID,
		"outcome":    outcome,
	}).Info("payment confirmation processed")

	if changed {
		s.publish(ctx, events.OrderPaid, order)
	}
	return order, nil
}

func (s *OrderService) Deliver(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, changed, err := s.transition(ctx, orderID, domain.MarkDelivered{Actor: actor, At: s.now()})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.OrderDelivered, order)
	}
	return order, nil
}

// transition applies cmd to the stored order, retrying once when the order
// changed between read and write.
func (s *OrderService) transition(ctx context.Context, orderID string, cmd domain.Command) (*domain.Order, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, false, err
		}
		from := order.Status()
		changed, err := order.Apply(cmd)
		if err != nil || !changed {
			return order, false, err
		}

		err = s.orders.SaveTransition(ctx, order, from)
		if errors.Is(err, repository.ErrStaleOrder) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return order, true, nil
	}
	return nil, false, fmt.Errorf("order %s: %w: %w", orderID, repository.ErrStaleOrder, domain.ErrConflict)
}

// Delete removes an order. Stock taken by an unpaid order is returned.
func (s *OrderService) Delete(ctx context.Context, actor domain.Actor, orderID string) error {
	if !actor.IsAdmin {
		return &domain.AuthorizationError{Action: "delete orders"}
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	if !order.IsPaid {
		s.releaseStock(ctx, order.Items)
	}
	return nil
}

type PayPalIntent struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ApproveURL string `json:"approveUrl,omitempty"`
}

// CreatePayPalOrder opens a PayPal order for the order total.
func (s *OrderService) CreatePayPalOrder(ctx context.Context, actor domain.Actor, orderID string) (*PayPalIntent, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, &domain.InvalidStateError{From: order.Status(), Command: "pay"}
	}
	if !s.paypal.Configured() {
		return nil, &domain.UpstreamPaymentError{Provider: payment.ProviderPayPal, Err: errors.New("paypal credentials are not configured")}
	}

	pp, err := s.paypal.CreateOrder(ctx, order.ID, order.TotalPrice)
	if err != nil {
		return nil, err
	}
	return &PayPalIntent{ID: pp.ID, Status: pp.Status, ApproveURL: pp.ApproveURL()}, nil
}

func (s *OrderService) PayPalClientID() string {
	return s.paypal.ClientID()
}

// WhatsAppLink returns the wa.me link the buyer uses to arrange payment.
func (s *OrderService) WhatsAppLink(ctx context.Context, actor domain.Actor, orderID string) (string, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return "", err
	}
	return payment.WhatsAppURL(s.phone, order), nil
}

func (s *OrderService) publish(ctx context.Context, t events.Type, order *domain.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(t, order, s.now())); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"event_type": t,
			"order_id":   order.ID,
		}).Error("failed to publish order event")
	}
}
