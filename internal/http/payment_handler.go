package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/service"
	"github.com/sirupsen/logrus"
)

type PaymentService interface {
	CreatePreference(ctx context.Context, actor domain.Actor, orderID string) (*service.CheckoutPreference, error)
	HandleNotification(ctx context.Context, topic, paymentID string) error
	HandleReturn(ctx context.Context, paymentID, status, externalReference string) string
}

type PaymentHandler struct {
	payments PaymentService
	logger   *logrus.Logger
}

func NewPaymentHandler(payments PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type notificationDTO struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

func (h *PaymentHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	pref, err := h.payments.CreatePreference(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "orderId"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, pref)
}

// Webhook always acknowledges; Mercado Pago retries anything else and the
// payment is looked up again on the next delivery or browser return.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topic := firstNonEmpty(q.Get("type"), q.Get("topic"))
	paymentID := firstNonEmpty(q.Get("data.id"), q.Get("id"))

	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		var n notificationDTO
		if err := json.Unmarshal(body, &n); err == nil {
			topic = firstNonEmpty(topic, n.Type, n.Topic)
			paymentID = firstNonEmpty(paymentID, n.Data.ID.String())
		}
	}

	log := h.logger.WithContext(r.Context()).WithFields(logrus.Fields{
		"topic":      topic,
		"payment_id": paymentID,
	})
	if err := h.payments.HandleNotification(r.Context(), topic, paymentID); err != nil {
		log.WithError(err).Error("mercadopago notification failed")
	} else {
		log.Info("mercadopago notification processed")
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := h.payments.HandleReturn(
		r.Context(),
		firstNonEmpty(q.Get("payment_id"), q.Get("collection_id")),
		firstNonEmpty(q.Get("status"), q.Get("collection_status")),
		q.Get("external_reference"),
	)
	http.Redirect(w, r, target, http.StatusFound)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// KeysHandler exposes the public client keys the SPA needs.
type KeysHandler struct {
	payPalClientID string
	googleAPIKey   string
}

func NewKeysHandler(payPalClientID, googleAPIKey string) *KeysHandler {
	if payPalClientID == "" {
		payPalClientID = "sb"
	}
	return &KeysHandler{payPalClientID: payPalClientID, googleAPIKey: googleAPIKey}
}

func (h *KeysHandler) PayPal(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, h.payPalClientID)
}

func (h *KeysHandler) Google(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"key": h.googleAPIKey})
}
