package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhargrove/shopflow-backend/api/controllers"
	webhookcontrollers "github.com/danielhargrove/shopflow-backend/api/controllers/webhooks"
	"github.com/danielhargrove/shopflow-backend/api/middleware"
	checkoutsvc "github.com/danielhargrove/shopflow-backend/internal/checkout"
	shippingsvc "github.com/danielhargrove/shopflow-backend/internal/shipping"
	"github.com/danielhargrove/shopflow-backend/pkg/config"
	"github.com/danielhargrove/shopflow-backend/pkg/logger"
	"github.com/danielhargrove/shopflow-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	stripeClient *stripe.Client,
	shippingService shippingsvc.Service,
	checkoutService checkoutsvc.Service,
	settlementService webhookcontrollers.SettlementService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Stripe posts here with its own signature header; the identity
	// middleware never sees this route.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.Stripe(settlementService, stripeClient, cfg, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Post("/shipping/quote", controllers.ShippingQuote(shippingService, logg))
		r.Post("/checkout/session", controllers.CreateCheckoutSession(checkoutService, logg))
	})

	return r
}
