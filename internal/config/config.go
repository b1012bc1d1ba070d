package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nicoirigoyen/e-commerce/internal/pricing"
)

type Config struct {
	ServiceName        string
	Env                string
	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	AllowedOrigins     []string

	LogLevel  string
	LogFormat string

	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string

	Ledger LedgerConfig

	JWTSecret   string
	JWTTokenTTL time.Duration

	Pricing  pricing.Rules
	Currency string

	PayPal      PayPalConfig
	MercadoPago MercadoPagoConfig

	GoogleAPIKey  string
	WhatsAppPhone string
	FrontendURL   string
	PublicURL     string

	OTLPEndpoint string
}

type LedgerConfig struct {
	Driver         string // postgres or sqlite
	DSN            string
	MigrationsPath string
}

type PayPalConfig struct {
	ClientID string
	Secret   string
	BaseURL  string
	Currency string // PayPal does not settle ARS
}

type MercadoPagoConfig struct {
	AccessToken  string
	BaseURL      string
	Installments int
}

// Load reads the process environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName:        getEnv("SERVICE_NAME", "storefront"),
		Env:                getEnv("APP_ENV", "development"),
		HTTPPort:           getEnv("HTTP_PORT", "5000"),
		GRPCPort:           getEnv("GRPC_PORT", "50051"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "storefront"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  getEnvList("KAFKA_BROKERS", nil),

		Ledger: LedgerConfig{
			Driver:         getEnv("LEDGER_DRIVER", "sqlite"),
			DSN:            getEnv("LEDGER_DSN", "file:ledger.db?_pragma=busy_timeout(5000)"),
			MigrationsPath: getEnv("LEDGER_MIGRATIONS_PATH", "internal/ledger/migrations"),
		},

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTTokenTTL: getEnvDuration("JWT_TOKEN_TTL", 30*24*time.Hour),

		Pricing: pricing.Rules{
			FreeShippingThreshold: getEnvFloat("FREE_SHIPPING_THRESHOLD", 100),
			FlatShippingFee:       getEnvFloat("FLAT_SHIPPING_FEE", 10),
			TaxRate:               getEnvFloat("TAX_RATE", 0.15),
		},
		Currency: getEnv("CURRENCY", "ARS"),

		PayPal: PayPalConfig{
			ClientID: getEnv("PAYPAL_CLIENT_ID", "sb"),
			Secret:   getEnv("PAYPAL_CLIENT_SECRET", ""),
			BaseURL:  getEnv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
			Currency: getEnv("PAYPAL_CURRENCY", "USD"),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:  getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
			BaseURL:      getEnv("MERCADOPAGO_API_URL", "https://api.mercadopago.com"),
			Installments: getEnvInt("MERCADOPAGO_INSTALLMENTS", 3),
		},

		GoogleAPIKey:  getEnv("GOOGLE_API_KEY", ""),
		WhatsAppPhone: getEnv("WHATSAPP_PHONE", "5493518684217"),
		FrontendURL:   strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		PublicURL:     strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:5000"), "/"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	switch c.Ledger.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("LEDGER_DRIVER must be postgres or sqlite, got %q", c.Ledger.Driver)
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.FlatShippingFee < 0 || c.Pricing.FreeShippingThreshold < 0 {
		return fmt.Errorf("pricing settings must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
