package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rahulbagri/phonelot-backend/api/controllers"
	"github.com/rahulbagri/phonelot-backend/api/middleware"
	"github.com/rahulbagri/phonelot-backend/internal/credits"
	"github.com/rahulbagri/phonelot-backend/internal/marketplace"
	"github.com/rahulbagri/phonelot-backend/pkg/config"
	"github.com/rahulbagri/phonelot-backend/pkg/db"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	pkgredis "github.com/rahulbagri/phonelot-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	marketplaceService marketplace.Service,
	creditsService credits.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole("customer", logg)).Post("/", controllers.CreateOrder(marketplaceService, logg))
			r.With(middleware.RequireRole("customer", logg)).Get("/", controllers.CustomerOrders(marketplaceService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(marketplaceService, logg))
			r.Get("/{orderId}/timeline", controllers.OrderTimeline(marketplaceService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(marketplaceService, logg))
		})

		r.Route("/partner", func(r chi.Router) {
			r.Use(middleware.RequireRole("partner", logg))

			r.Route("/leads", func(r chi.Router) {
				r.Get("/", controllers.PartnerLeads(marketplaceService, logg))
				r.Get("/{orderId}", controllers.PartnerLeadDetail(marketplaceService, logg))
				r.Post("/{orderId}/lock", controllers.PartnerLockLead(marketplaceService, logg))
				r.Post("/{orderId}/release", controllers.PartnerReleaseLead(marketplaceService, logg))
				r.Post("/{orderId}/purchase", controllers.PartnerPurchaseLead(marketplaceService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.PartnerOrders(marketplaceService, logg))
				r.Post("/{orderId}/assign", controllers.PartnerAssignAgent(marketplaceService, logg))
				r.Post("/{orderId}/reassign", controllers.PartnerReassignAgent(marketplaceService, logg))
			})

			r.Route("/credits", func(r chi.Router) {
				r.Get("/plans", controllers.CreditPlans(creditsService, logg))
				r.Post("/purchase", controllers.PurchaseCredits(creditsService, logg))
				r.Get("/balance", controllers.CreditBalance(creditsService, logg))
				r.Get("/transactions", controllers.CreditTransactions(creditsService, logg))
			})
		})

		r.Route("/agent", func(r chi.Router) {
			r.Use(middleware.RequireRole("agent", logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AgentOrders(marketplaceService, logg))
				r.Post("/{orderId}/accept", controllers.AgentAcceptOrder(marketplaceService, logg))
				r.Post("/{orderId}/schedule", controllers.AgentSchedulePickup(marketplaceService, logg))
				r.Post("/{orderId}/complete", controllers.AgentCompletePickup(marketplaceService, logg))
				r.Post("/{orderId}/payment", controllers.AgentProcessPayment(marketplaceService, logg))
			})
		})
	})

	return r
}
