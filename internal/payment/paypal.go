package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/pricing"
	"github.com/sirupsen/logrus"
)

const (
	ProviderPayPal        = "paypal"
	PayPalStatusCompleted = "COMPLETED"
)

type PayPalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type PayPalOrder struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []PayPalLink `json:"links"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []PayPalPurchaseUnit `json:"purchase_units"`
}

type PayPalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id"`
	Amount      PayPalAmount `json:"amount"`
}

type PayPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// ApproveURL returns the buyer approval link, if PayPal sent one.
func (o *PayPalOrder) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type PayPalClient struct {
	http     *resty.Client
	cb       *breaker
	clientID string
	secret   string
	currency string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewPayPalClient(baseURL, clientID, secret, currency string, bs BreakerSettings, logger *logrus.Logger) *PayPalClient {
	return &PayPalClient{
		http:     newRestyClient(baseURL),
		cb:       newBreaker(ProviderPayPal, bs, logger),
		clientID: clientID,
		secret:   secret,
		currency: currency,
	}
}

// Configured reports whether server-side calls are possible. Without a
// secret only the public client id is usable.
func (c *PayPalClient) Configured() bool {
	return c.secret != ""
}

func (c *PayPalClient) ClientID() string {
	return c.clientID
}

// Currency is the currency PayPal orders are opened in.
func (c *PayPalClient) Currency() string {
	return c.currency
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	var tok tokenResponse
	_, err := call(c.cb, ProviderPayPal, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBasicAuth(c.clientID, c.secret).
			SetFormData(map[string]string{"grant_type": "client_credentials"}).
			SetResult(&tok).
			Post("/v1/oauth2/token")
	})
	if err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("oauth token: empty access token")
	}

	c.token = tok.AccessToken
	// refresh a minute early
	c.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// CreateOrder opens a PayPal order with intent CAPTURE for the given amount.
func (c *PayPalClient) CreateOrder(ctx context.Context, orderID string, amount float64) (*PayPalOrder, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, &domain.UpstreamPaymentError{Provider: ProviderPayPal, Err: err}
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": orderID,
			"custom_id":    orderID,
			"amount": map[string]string{
				"currency_code": c.currency,
				"value":         pricing.FormatAmount(amount),
			},
		}},
	}

	var out PayPalOrder
	_, err = call(c.cb, ProviderPayPal, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("PayPal-Request-Id", orderID).
			SetBody(body).
			SetResult(&out).
			Post("/v2/checkout/orders")
	})
	if err != nil {
		return nil, &domain.UpstreamPaymentError{Provider: ProviderPayPal, Err: fmt.Errorf("create order: %w", err)}
	}
	return &out, nil
}

func (c *PayPalClient) GetOrder(ctx context.Context, paypalOrderID string) (*PayPalOrder, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, &domain.UpstreamPaymentError{Provider: ProviderPayPal, Err: err}
	}

	var out PayPalOrder
	_, err = call(c.cb, ProviderPayPal, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetPathParam("id", paypalOrderID).
			SetResult(&out).
			Get("/v2/checkout/orders/{id}")
	})
	if err != nil {
		return nil, &domain.UpstreamPaymentError{Provider: ProviderPayPal, Err: fmt.Errorf("get order %s: %w", paypalOrderID, err)}
	}
	return &out, nil
}
