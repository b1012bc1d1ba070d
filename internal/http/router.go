package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nicoirigoyen/e-commerce/internal/auth"
	"github.com/nicoirigoyen/e-commerce/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Cart     *CartHandler
	Orders   *OrdersHandler
	Products *ProductHandler
	Users    *UserHandler
	Featured *FeaturedHandler
	Payments *PaymentHandler
	Keys     *KeysHandler
	// Ready reports dependency health for /health; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig, h Handlers, tokens *auth.TokenIssuer, logger *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(BodyLimit(cfg.MaxRequestBodySize))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", health(h.Ready))
	r.Handle("/metrics", promhttp.Handler())

	authenticated := Authenticate(tokens)

	r.Route("/api", func(r chi.Router) {
		r.Route("/keys", func(r chi.Router) {
			r.Get("/paypal", h.Keys.PayPal)
			r.Get("/google", h.Keys.Google)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/search", h.Products.Search)
			r.Get("/categories", h.Products.Categories)
			r.Get("/slug/{slug}", h.Products.GetBySlug)
			r.Get("/{id}", h.Products.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/{id}/reviews", h.Products.AddReview)

				r.Group(func(r chi.Router) {
					r.Use(RequireAdmin)
					r.Get("/admin", h.Products.AdminList)
					r.Post("/", h.Products.Create)
					r.Put("/{id}", h.Products.Update)
					r.Delete("/{id}", h.Products.Delete)
				})
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/signin", h.Users.Signin)
			r.Post("/signup", h.Users.Signup)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Put("/profile", h.Users.UpdateProfile)
				r.Get("/{id}", h.Users.Get)

				r.Group(func(r chi.Router) {
					r.Use(RequireAdmin)
					r.Get("/", h.Users.List)
					r.Put("/{id}", h.Users.Update)
					r.Delete("/{id}", h.Users.Delete)
				})
			})
		})

		r.Route("/featured", func(r chi.Router) {
			r.Get("/", h.Featured.ListActive)

			r.Group(func(r chi.Router) {
				r.Use(authenticated, RequireAdmin)
				r.Get("/all", h.Featured.ListAll)
				r.Post("/", h.Featured.Create)
				r.Put("/{id}", h.Featured.Update)
				r.Delete("/{id}", h.Featured.Delete)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{productId}", h.Cart.UpdateQuantity)
			r.Delete("/items/{productId}", h.Cart.RemoveItem)
			r.Put("/shipping", h.Cart.SaveShippingAddress)
			r.Put("/payment", h.Cart.SavePaymentMethod)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", h.Orders.PlaceOrder)
			r.Get("/mine", h.Orders.ListMine)
			r.Get("/{id}", h.Orders.GetOrder)
			r.Put("/{id}/pay", h.Orders.Pay)
			r.Post("/{id}/paypal", h.Orders.CreatePayPalOrder)
			r.Get("/{id}/whatsapp", h.Orders.WhatsApp)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", h.Orders.ListAll)
				r.Put("/{id}/deliver", h.Orders.Deliver)
				r.Delete("/{id}", h.Orders.Delete)
			})
		})

		r.Route("/payments/mercadopago", func(r chi.Router) {
			r.Post("/webhook", h.Payments.Webhook)
			r.Get("/return", h.Payments.Return)
			r.With(authenticated).Post("/{orderId}", h.Payments.CreatePreference)
		})
	})

	return r
}

func health(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
