package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/marketplace-cart/api/routes"
	cartsvc "github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/internal/catalog"
	"github.com/angelmondragon/marketplace-cart/internal/reconcile"
	"github.com/angelmondragon/marketplace-cart/internal/shipping"
	"github.com/angelmondragon/marketplace-cart/pkg/config"
	"github.com/angelmondragon/marketplace-cart/pkg/db"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
	"github.com/angelmondragon/marketplace-cart/pkg/metrics"
	"github.com/angelmondragon/marketplace-cart/pkg/migrate"
	"github.com/angelmondragon/marketplace-cart/pkg/redis"
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	cartMetrics := metrics.NewCartMetrics(registry)

	cartRepo := cartsvc.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	profileRepo := shipping.NewProfileRepository(dbClient.DB())
	policyRepo := shipping.NewPolicyRepository(dbClient.DB())

	locker, err := cartsvc.NewRedisLocker(redisClient, cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart locker", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	itemService, err := cartsvc.NewItemService(cartRepo, dbClient, catalogRepo, locker, logg, cartMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart item service", err)
		os.Exit(1)
	}

	reconciler, err := reconcile.NewEngine(cartRepo, dbClient, catalogRepo, locker, logg, cartMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability reconciler", err)
		os.Exit(1)
	}

	calculator, err := shipping.NewCalculator(catalogRepo, profileRepo, policyRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping calculator", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, cartService, itemService, reconciler, calculator, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
