package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunamercado/storefront-backend/api/controllers"
	inventorycontrollers "github.com/lunamercado/storefront-backend/api/controllers/inventory"
	ordercontrollers "github.com/lunamercado/storefront-backend/api/controllers/orders"
	"github.com/lunamercado/storefront-backend/api/middleware"
	"github.com/lunamercado/storefront-backend/internal/adjustments"
	"github.com/lunamercado/storefront-backend/internal/ledger"
	"github.com/lunamercado/storefront-backend/internal/orders"
	"github.com/lunamercado/storefront-backend/internal/reservations"
	"github.com/lunamercado/storefront-backend/pkg/config"
	"github.com/lunamercado/storefront-backend/pkg/db"
	"github.com/lunamercado/storefront-backend/pkg/logger"
	"github.com/lunamercado/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	ledg *ledger.Ledger,
	ordersSvc orders.Service,
	adjustmentsSvc adjustments.Service,
	reservationsSvc reservations.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Checkout and order lookup accept guests; a bearer token upgrades
		// the request to the authenticated customer.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Post("/orders", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/orders/number/{orderNumber}", ordercontrollers.DetailByNumber(ordersSvc, logg))
			r.Get("/products/{productId}/availability", inventorycontrollers.Availability(ledg, dbClient, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/orders", ordercontrollers.List(ordersSvc, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Patch("/orders/{orderId}/status", ordercontrollers.UpdateStatus(ordersSvc, logg))

		r.Route("/adjustments", func(r chi.Router) {
			r.Post("/", inventorycontrollers.RequestAdjustment(adjustmentsSvc, logg))
			r.Get("/", inventorycontrollers.ListAdjustments(adjustmentsSvc, logg))
			r.Get("/{adjustmentId}", inventorycontrollers.GetAdjustment(adjustmentsSvc, logg))
			r.Post("/{adjustmentId}/decision", inventorycontrollers.DecideAdjustment(adjustmentsSvc, logg))
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", inventorycontrollers.Hold(reservationsSvc, logg))
			r.Post("/{reservationId}/release", inventorycontrollers.Release(reservationsSvc, logg))
		})
	})

	return r
}
