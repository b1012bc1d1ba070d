package http

import (
	"context"
	"sync"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/service"
)

type cartServiceMock struct {
	m         sync.RWMutex
	cart      *domain.Cart
	err       error
	lastUser  string
	lastItem  string
	lastQty   int
	lastAddr  domain.ShippingAddress
	clearedBy string
}

func (c *cartServiceMock) record(userID, productID string, qty int) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.lastUser, c.lastItem, c.lastQty = userID, productID, qty
	if c.err != nil {
		return nil, c.err
	}
	return c.cart, nil
}

func (c *cartServiceMock) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	return c.record(userID, "", 0)
}

func (c *cartServiceMock) AddItem(_ context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	return c.record(userID, productID, quantity)
}

func (c *cartServiceMock) UpdateQuantity(_ context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	return c.record(userID, productID, quantity)
}

func (c *cartServiceMock) RemoveItem(_ context.Context, userID, productID string) (*domain.Cart, error) {
	return c.record(userID, productID, 0)
}

func (c *cartServiceMock) ClearCart(_ context.Context, userID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.clearedBy = userID
	return c.err
}

func (c *cartServiceMock) SaveShippingAddress(_ context.Context, userID string, addr domain.ShippingAddress) (*domain.Cart, error) {
	c.m.Lock()
	c.lastAddr = addr
	c.m.Unlock()
	return c.record(userID, "", 0)
}

func (c *cartServiceMock) SavePaymentMethod(_ context.Context, userID string, _ domain.PaymentMethod) (*domain.Cart, error) {
	return c.record(userID, "", 0)
}

type orderServiceMock struct {
	m        sync.RWMutex
	order    *domain.Order
	err      error
	lastReq  service.PlaceOrderRequest
	lastPay  service.PaymentConfirmation
	lastID   string
	lastUser domain.Actor
}

func (o *orderServiceMock) result(actor domain.Actor, id string) (*domain.Order, error) {
	o.m.Lock()
	defer o.m.Unlock()
	o.lastUser, o.lastID = actor, id
	if o.err != nil {
		return nil, o.err
	}
	return o.order, nil
}

func (o *orderServiceMock) PlaceOrder(_ context.Context, userID string, req service.PlaceOrderRequest) (*domain.Order, error) {
	o.m.Lock()
	o.lastReq = req
	o.m.Unlock()
	return o.result(domain.Actor{UserID: userID}, "")
}

func (o *orderServiceMock) GetOrder(_ context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return o.result(actor, orderID)
}

func (o *orderServiceMock) ListMine(_ context.Context, userID string) ([]domain.Order, error) {
	ord, err := o.result(domain.Actor{UserID: userID}, "")
	if err != nil {
		return nil, err
	}
	return []domain.Order{*ord}, nil
}

func (o *orderServiceMock) ListAll(_ context.Context, actor domain.Actor) ([]domain.Order, error) {
	ord, err := o.result(actor, "")
	if err != nil {
		return nil, err
	}
	return []domain.Order{*ord}, nil
}

func (o *orderServiceMock) Pay(_ context.Context, actor domain.Actor, orderID string, c service.PaymentConfirmation) (*domain.Order, error) {
	o.m.Lock()
	o.lastPay = c
	o.m.Unlock()
	return o.result(actor, orderID)
}

func (o *orderServiceMock) Deliver(_ context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return o.result(actor, orderID)
}

func (o *orderServiceMock) Delete(_ context.Context, actor domain.Actor, orderID string) error {
	_, err := o.result(actor, orderID)
	return err
}

func (o *orderServiceMock) CreatePayPalOrder(_ context.Context, actor domain.Actor, orderID string) (*service.PayPalIntent, error) {
	if _, err := o.result(actor, orderID); err != nil {
		return nil, err
	}
	return &service.PayPalIntent{ID: "PP-" + orderID, Status: "CREATED"}, nil
}

func (o *orderServiceMock) WhatsAppLink(_ context.Context, actor domain.Actor, orderID string) (string, error) {
	if _, err := o.result(actor, orderID); err != nil {
		return "", err
	}
	return "https://wa.me/549?text=hola", nil
}

type paymentServiceMock struct {
	m         sync.RWMutex
	err       error
	topic     string
	paymentID string
	returnArg [3]string
	target    string
}

func (p *paymentServiceMock) CreatePreference(_ context.Context, _ domain.Actor, orderID string) (*service.CheckoutPreference, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &service.CheckoutPreference{ID: "pref-" + orderID, InitPoint: "https://mp/" + orderID}, nil
}

func (p *paymentServiceMock) HandleNotification(_ context.Context, topic, paymentID string) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.topic, p.paymentID = topic, paymentID
	return p.err
}

func (p *paymentServiceMock) HandleReturn(_ context.Context, paymentID, status, externalReference string) string {
	p.m.Lock()
	defer p.m.Unlock()
	p.returnArg = [3]string{paymentID, status, externalReference}
	return p.target
}
