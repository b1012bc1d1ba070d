package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/auth"
	"github.com/nicoirigoyen/e-commerce/internal/cache"
	"github.com/nicoirigoyen/e-commerce/internal/config"
	"github.com/nicoirigoyen/e-commerce/internal/events"
	"github.com/nicoirigoyen/e-commerce/internal/health"
	apihttp "github.com/nicoirigoyen/e-commerce/internal/http"
	"github.com/nicoirigoyen/e-commerce/internal/ledger"
	"github.com/nicoirigoyen/e-commerce/internal/logging"
	"github.com/nicoirigoyen/e-commerce/internal/payment"
	"github.com/nicoirigoyen/e-commerce/internal/pricing"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/nicoirigoyen/e-commerce/internal/service"
	"github.com/nicoirigoyen/e-commerce/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	logger.Infof("%s starting...", cfg.ServiceName)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("storefront stopped with error")
	}
	logger.Info("storefront stopped")
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(tctx); err != nil {
			logger.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	// MongoDB
	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := db.Client().Disconnect(dctx); err != nil {
			logger.WithError(err).Warn("mongodb disconnect failed")
		}
	}()
	if err := repository.CreateIndexes(ctx, db); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	logger.Info("connected to MongoDB")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable at startup, cart cache will miss")
	}

	// Payment ledger
	cred := &ledger.Credentials{
		Driver:            cfg.Ledger.Driver,
		DSN:               cfg.Ledger.DSN,
		MigrationsDirPath: cfg.Ledger.MigrationsPath,
	}
	payments, err := ledger.NewLedger(cred)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer payments.Close()
	if err := payments.RunMigrations(cred); err != nil {
		return fmt.Errorf("ledger migrations: %w", err)
	}
	logger.Info("ledger migrations completed")

	carts := repository.NewCartRepository(db)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	users := repository.NewUserRepository(db)
	featured := repository.NewFeaturedRepository(db)

	cartCache := cache.NewRedisCache(redisClient)
	cleaner := events.NewCartCleaner(carts, cartCache, logger)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Order events go through Kafka when brokers are configured, otherwise
	// they are dispatched in-process.
	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers...)
		consumer := events.NewKafkaConsumer(cfg.ServiceName+"-cart-cleaner", cleaner, logger, cfg.KafkaBrokers...)
		defer consumer.Close()
		g.Go(func() error {
			logger.WithField("brokers", cfg.KafkaBrokers).Info("order event consumer started")
			return consumer.Run(gctx)
		})
	} else {
		publisher = events.NewLocalPublisher(logger, cleaner)
	}
	defer publisher.Close()

	bs := payment.DefaultBreakerSettings()
	mercadoPago := payment.NewMercadoPagoClient(cfg.MercadoPago.BaseURL, cfg.MercadoPago.AccessToken, cfg.MercadoPago.Installments, bs, logger)
	payPal := payment.NewPayPalClient(cfg.PayPal.BaseURL, cfg.PayPal.ClientID, cfg.PayPal.Secret, cfg.PayPal.Currency, bs, logger)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTokenTTL)

	orderService := service.NewOrderService(service.OrderDeps{
		Orders:        orders,
		Products:      products,
		Carts:         carts,
		Idempotency:   cache.NewRedisIdempotencyStore(redisClient),
		Calculator:    pricing.NewCalculator(cfg.Pricing),
		Publisher:     publisher,
		PayPal:        payPal,
		Ledger:        payments,
		Logger:        logger,
		WhatsAppPhone: cfg.WhatsAppPhone,
	})
	paymentService := service.NewPaymentService(orderService, mercadoPago, service.PaymentServiceConfig{
		Currency:    cfg.Currency,
		PublicURL:   cfg.PublicURL,
		FrontendURL: cfg.FrontendURL,
	}, logger)

	healthServer := health.NewServer(map[string]health.Checker{
		"mongo":  func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
		"redis":  func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"ledger": payments.Ping,
	}, healthInterval, logger)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		AllowedOrigins:     cfg.AllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, apihttp.Handlers{
		Cart:     apihttp.NewCartHandler(service.NewCartService(carts, products, cartCache, logger), logger),
		Orders:   apihttp.NewOrdersHandler(orderService, logger),
		Products: apihttp.NewProductHandler(service.NewCatalogService(products, logger), logger),
		Users:    apihttp.NewUserHandler(service.NewUserService(users, tokens, logger), logger),
		Featured: apihttp.NewFeaturedHandler(service.NewFeaturedService(featured), logger),
		Payments: apihttp.NewPaymentHandler(paymentService, logger),
		Keys:     apihttp.NewKeysHandler(orderService.PayPalClientID(), cfg.GoogleAPIKey),
		Ready:    healthServer.Ready,
	}, tokens, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Infof("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Infof("gRPC health server listening on :%s", cfg.GRPCPort)
		return healthServer.Run(gctx, lis)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down storefront...")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
