package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/sirupsen/logrus"
)

const ProviderMercadoPago = "mercadopago"

// Mercado Pago payment statuses used by reconciliation.
const (
	MPStatusApproved   = "approved"
	MPStatusPending    = "pending"
	MPStatusInProcess  = "in_process"
	MPStatusRejected   = "rejected"
	MPStatusCancelled  = "cancelled"
	MPStatusRefunded   = "refunded"
	MPStatusChargeBack = "charged_back"
)

type PreferenceItem struct {
	Title      string  `json:"title"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id,omitempty"`
}

type BackURLs struct {
	Success string `json:"success"`
	Pending string `json:"pending"`
	Failure string `json:"failure"`
}

type excludedType struct {
	ID string `json:"id"`
}

type paymentMethods struct {
	ExcludedPaymentTypes []excludedType `json:"excluded_payment_types"`
	Installments         int            `json:"installments"`
}

type preferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	PaymentMethods    paymentMethods   `json:"payment_methods"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

// PreferenceInput describes a checkout preference for one order.
type PreferenceInput struct {
	OrderID         string
	Items           []PreferenceItem
	BackURLs        BackURLs
	NotificationURL string
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type MPPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	DateApproved      string      `json:"date_approved"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

type MercadoPagoClient struct {
	http         *resty.Client
	cb           *breaker
	installments int
}

func NewMercadoPagoClient(baseURL, accessToken string, installments int, bs BreakerSettings, logger *logrus.Logger) *MercadoPagoClient {
	return &MercadoPagoClient{
		http:         newRestyClient(baseURL).SetAuthToken(accessToken),
		cb:           newBreaker(ProviderMercadoPago, bs, logger),
		installments: installments,
	}
}

func (c *MercadoPagoClient) CreatePreference(ctx context.Context, in PreferenceInput) (*Preference, error) {
	body := preferenceRequest{
		Items:             in.Items,
		ExternalReference: in.OrderID,
		PaymentMethods: paymentMethods{
			ExcludedPaymentTypes: []excludedType{{ID: "atm"}},
			Installments:         c.installments,
		},
		BackURLs:        in.BackURLs,
		AutoReturn:      "approved",
		NotificationURL: in.NotificationURL,
	}

	var pref Preference
	_, err := call(c.cb, ProviderMercadoPago, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&pref).
			Post("/checkout/preferences")
	})
	if err != nil {
		return nil, &domain.UpstreamPaymentError{Provider: ProviderMercadoPago, Err: fmt.Errorf("create preference: %w", err)}
	}
	if pref.ID == "" {
		return nil, &domain.UpstreamPaymentError{Provider: ProviderMercadoPago, Err: fmt.Errorf("create preference: empty preference id")}
	}
	return &pref, nil
}

func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*MPPayment, error) {
	if _, err := strconv.ParseInt(paymentID, 10, 64); err != nil {
		return nil, &domain.ValidationError{Field: "payment_id", Message: "must be numeric"}
	}

	var p MPPayment
	_, err := call(c.cb, ProviderMercadoPago, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("id", paymentID).
			SetResult(&p).
			Get("/v1/payments/{id}")
	})
	if err != nil {
		return nil, &domain.UpstreamPaymentError{Provider: ProviderMercadoPago, Err: fmt.Errorf("get payment %s: %w", paymentID, err)}
	}
	return &p, nil
}
