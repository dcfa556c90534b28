package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketplace-cart/api/controllers"
	cartcontrollers "github.com/angelmondragon/marketplace-cart/api/controllers/cart"
	"github.com/angelmondragon/marketplace-cart/api/middleware"
	cartsvc "github.com/angelmondragon/marketplace-cart/internal/cart"
	"github.com/angelmondragon/marketplace-cart/internal/reconcile"
	"github.com/angelmondragon/marketplace-cart/internal/shipping"
	"github.com/angelmondragon/marketplace-cart/pkg/config"
	"github.com/angelmondragon/marketplace-cart/pkg/db"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
	"github.com/angelmondragon/marketplace-cart/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	cartService cartsvc.Service,
	itemService cartsvc.ItemService,
	reconciler *reconcile.Engine,
	calculator *shipping.Calculator,
	metricsRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.BuyerAuth(logg))

		r.Get("/", cartcontrollers.OpenCart(cartService, logg))
		r.Route("/{cartID}", func(r chi.Router) {
			r.Post("/items", cartcontrollers.AddItem(itemService, logg))
			r.Put("/items/{itemID}", cartcontrollers.UpdateItem(itemService, logg))
			r.Delete("/items/{itemID}", cartcontrollers.RemoveItem(itemService, logg))
			r.Post("/reconcile", cartcontrollers.Reconcile(reconciler, logg))
			r.Get("/shipping-quote", cartcontrollers.ShippingQuote(cartService, calculator, logg))
			r.Post("/checkout-done", cartcontrollers.CheckoutDone(cartService, logg))
		})
	})

	return r
}
