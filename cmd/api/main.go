package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhargrove/shopflow-backend/api/controllers"
	"github.com/danielhargrove/shopflow-backend/api/routes"
	"github.com/danielhargrove/shopflow-backend/internal/checkout"
	"github.com/danielhargrove/shopflow-backend/internal/orders"
	"github.com/danielhargrove/shopflow-backend/internal/products"
	"github.com/danielhargrove/shopflow-backend/internal/promo"
	"github.com/danielhargrove/shopflow-backend/internal/settlement"
	"github.com/danielhargrove/shopflow-backend/internal/shipping"
	"github.com/danielhargrove/shopflow-backend/internal/users"
	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/db"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
	"github.com/danielhargrove/shopflow-backend/pkg/metrics"
	"github.com/danielhargrove/shopflow-backend/pkg/migrate"
	"github.com/danielhargrove/shopflow-backend/pkg/redis"
	"github.com/danielhargrove/shopflow-backend/pkg/shippo"
	"github.com/danielhargrove/shopflow-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	shippoClient, err := shippo.NewClient(cfg.Shippo, cfg.Shipping.HandlingFeeCents, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shippo client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	shippingService, err := shipping.NewService(productsRepo, shippoClient, cfg.Shipping, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	promoService, err := promo.NewService(stripeClient, usersRepo, cfg.Promo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create promo service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		stripeClient,
		shippingService,
		promoService,
		productsRepo,
		cfg.Stripe,
		cfg.Shipping,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookGuard, err := settlement.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe:webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(
		dbClient,
		ordersRepo,
		productsRepo,
		stripeClient,
		shippoClient,
		webhookGuard,
		cfg.Shipping,
		metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			stripeClient,
			shippingService,
			checkoutService,
			settlementService,
		),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining connections")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}
