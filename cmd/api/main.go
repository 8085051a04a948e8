package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/lunamercado/storefront-backend/api/routes"
	"github.com/lunamercado/storefront-backend/internal/adjustments"
	"github.com/lunamercado/storefront-backend/internal/catalog"
	"github.com/lunamercado/storefront-backend/internal/ledger"
	"github.com/lunamercado/storefront-backend/internal/orders"
	"github.com/lunamercado/storefront-backend/internal/reservations"
	"github.com/lunamercado/storefront-backend/pkg/config"
	"github.com/lunamercado/storefront-backend/pkg/db"
	"github.com/lunamercado/storefront-backend/pkg/logger"
	"github.com/lunamercado/storefront-backend/pkg/migrate"
	"github.com/lunamercado/storefront-backend/pkg/outbox"
	"github.com/lunamercado/storefront-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledg := ledger.New()
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	reservationsSvc, err := reservations.NewService(reservations.ServiceParams{
		Repo:   reservations.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Ledger: ledg,
		Outbox: outboxSvc,
		TTL:    cfg.Reservations.TTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservations service", err)
		os.Exit(1)
	}

	adjustmentsSvc, err := adjustments.NewService(adjustments.ServiceParams{
		Repo:   adjustments.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Ledger: ledg,
		Outbox: outboxSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create adjustments service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:            orders.NewRepository(dbClient.DB()),
		Catalog:         catalog.NewRepository(dbClient.DB()),
		ReservationRepo: reservations.NewRepository(dbClient.DB()),
		Holds:           reservationsSvc,
		Tx:              dbClient,
		Ledger:          ledg,
		Outbox:          outboxSvc,
		TaxRate:         cfg.Orders.TaxRate,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ledg, ordersSvc, adjustmentsSvc, reservationsSvc),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
