package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimbusvr/trackshop-backend/api/routes"
	"github.com/nimbusvr/trackshop-backend/internal/checkout"
	"github.com/nimbusvr/trackshop-backend/internal/notifications"
	"github.com/nimbusvr/trackshop-backend/internal/reconciliation"
	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/db"
	"github.com/nimbusvr/trackshop-backend/pkg/dlocalgo"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/metrics"
	"github.com/nimbusvr/trackshop-backend/pkg/migrate"
	"github.com/nimbusvr/trackshop-backend/pkg/paypal"
	"github.com/nimbusvr/trackshop-backend/pkg/redis"
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

	dlocalgoClient, err := dlocalgo.NewClient(context.Background(), cfg.DLocalGo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dlocalgo client", err)
		os.Exit(1)
	}
	paypalClient, err := paypal.NewClient(context.Background(), cfg.PayPal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	reconcileMetrics := metrics.NewReconcileMetrics(registry)

	trackingRepo := tracking.NewRepository(dbClient.DB())
	factory := tracking.NewFactory()
	guard := tracking.NewGuard()
	dispatcher := notifications.NewDispatcher(cfg.Sendgrid, logg)

	engine, err := reconciliation.NewEngine(reconciliation.EngineParams{
		Repo:       trackingRepo,
		Factory:    factory,
		Dispatcher: dispatcher,
		Logger:     logg,
		Metrics:    reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation engine", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Repo:      trackingRepo,
		Factory:   factory,
		DLocalGo:  dlocalgoClient,
		PayPal:    paypalClient,
		PublicURL: cfg.App.PublicURL,
		Checkout:  cfg.Checkout,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			CheckoutService: checkoutService,
			TrackingRepo:    trackingRepo,
			Guard:           guard,
			Engine:          engine,
			ReplayGuard:     reconciliation.NewReplayGuard(redisClient, logg),
			DLocalGo:        dlocalgoClient,
			PayPal:          paypalClient,
			Metrics:         reconcileMetrics,
			PromGatherer:    registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
