package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/service"
	"github.com/sirupsen/logrus"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, userID string, req service.PlaceOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	ListMine(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
	Pay(ctx context.Context, actor domain.Actor, orderID string, c service.PaymentConfirmation) (*domain.Order, error)
	Deliver(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	Delete(ctx context.Context, actor domain.Actor, orderID string) error
	CreatePayPalOrder(ctx context.Context, actor domain.Actor, orderID string) (*service.PayPalIntent, error)
	WhatsAppLink(ctx context.Context, actor domain.Actor, orderID string) (string, error)
}

type OrdersHandler struct {
	orders OrderService
	logger *logrus.Logger
}

func NewOrdersHandler(orders OrderService, logger *logrus.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, logger: logger}
}

// PlaceOrderRequestDTO overrides the selections saved on the cart.
type PlaceOrderRequestDTO struct {
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod    `json:"paymentMethod"`
}

type PayOrderRequestDTO struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type OrderMessageResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order,omitempty"`
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequestDTO
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), actorFrom(r.Context()).UserID, service.PlaceOrderRequest{
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, OrderMessageResponse{Message: "New Order Created", Order: order})
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), actorFrom(r.Context()).UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context(), actorFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req PayOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.Pay(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), service.PaymentConfirmation{
		ID:           req.ID,
		Status:       req.Status,
		UpdateTime:   req.UpdateTime,
		EmailAddress: req.EmailAddress,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, OrderMessageResponse{Message: "Order Paid", Order: order})
}

func (h *OrdersHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Deliver(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, OrderMessageResponse{Message: "Order Delivered", Order: order})
}

func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, OrderMessageResponse{Message: "Order Deleted"})
}

func (h *OrdersHandler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	intent, err := h.orders.CreatePayPalOrder(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, intent)
}

func (h *OrdersHandler) WhatsApp(w http.ResponseWriter, r *http.Request) {
	link, err := h.orders.WhatsAppLink(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": link})
}
