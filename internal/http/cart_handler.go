package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/sirupsen/logrus"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
	SaveShippingAddress(ctx context.Context, userID string, addr domain.ShippingAddress) (*domain.Cart, error)
	SavePaymentMethod(ctx context.Context, userID string, method domain.PaymentMethod) (*domain.Cart, error)
}

type CartHandler struct {
	carts  CartService
	logger *logrus.Logger
}

func NewCartHandler(carts CartService, logger *logrus.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type PaymentMethodRequestDTO struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), actorFrom(r.Context()).UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(r.Context(), actorFrom(r.Context()).UserID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateQuantity(r.Context(), actorFrom(r.Context()).UserID, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(), actorFrom(r.Context()).UserID, chi.URLParam(r, "productId"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.ClearCart(r.Context(), actorFrom(r.Context()).UserID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) SaveShippingAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.ShippingAddress
	if !decodeJSON(w, r, &addr) {
		return
	}

	cart, err := h.carts.SaveShippingAddress(r.Context(), actorFrom(r.Context()).UserID, addr)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) SavePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.SavePaymentMethod(r.Context(), actorFrom(r.Context()).UserID, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}
