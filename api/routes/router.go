package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/givefolio/givefolio-backend/api/controllers"
	"github.com/givefolio/givefolio-backend/api/middleware"
	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/internal/auth"
	"github.com/givefolio/givefolio-backend/internal/charity"
	"github.com/givefolio/givefolio-backend/internal/notifications"
	"github.com/givefolio/givefolio-backend/internal/orders"
	"github.com/givefolio/givefolio-backend/internal/portfolio"
	"github.com/givefolio/givefolio-backend/internal/users"
	"github.com/givefolio/givefolio-backend/pkg/config"
	"github.com/givefolio/givefolio-backend/pkg/logger"
	"github.com/givefolio/givefolio-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on. Optional
// entries (Notifications) may be nil; their routes then answer 500.
type Services struct {
	Auth          auth.Service
	Users         users.Service
	Portfolio     portfolio.Service
	Orders        orders.Service
	Charities     charity.Service
	Allocations   allocation.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	authPolicy := middleware.NewRateLimitPolicy(
		"auth",
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.IPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"database": dbPinger,
			"redis":    redisClient,
		}))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/api/v1/impact", controllers.PlatformImpact(svcs.Allocations, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(authPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.RateLimit(authPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", controllers.UserProfile(svcs.Users, logg))
			r.Put("/me/charity-preference", controllers.UpdateCharityPreference(svcs.Users, logg))
		})

		r.Route("/v1/portfolio", func(r chi.Router) {
			r.Post("/buy", controllers.PortfolioBuy(svcs.Portfolio, logg))
			r.Post("/sell", controllers.PortfolioSell(svcs.Portfolio, logg))
			r.Get("/positions", controllers.PortfolioPositions(svcs.Portfolio, logg))
			r.Get("/transactions", controllers.PortfolioTransactions(svcs.Portfolio, logg))
			r.Get("/summary", controllers.PortfolioSummary(svcs.Portfolio, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(svcs.Orders, logg))
		})

		r.Route("/v1/charities", func(r chi.Router) {
			r.Get("/", controllers.CharityList(svcs.Charities, logg))
			r.Get("/{charityId}", controllers.CharityDetail(svcs.Charities, logg))
		})

		r.Route("/v1/allocations", func(r chi.Router) {
			r.Get("/", controllers.AllocationList(svcs.Allocations, logg))
			r.Get("/impact", controllers.AllocationImpact(svcs.Allocations, logg))
			r.Get("/{allocationId}", controllers.AllocationDetail(svcs.Allocations, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/charities", controllers.AdminCharityCreate(svcs.Charities, logg))
			r.Post("/charities/{charityId}/verify", controllers.AdminCharityVerify(svcs.Charities, logg))
			r.Post("/allocations/{allocationId}/transferred", controllers.AdminAllocationTransferred(svcs.Allocations, logg))
			r.Post("/allocations/{allocationId}/confirmed", controllers.AdminAllocationConfirmed(svcs.Allocations, logg))
		})
	})

	return r
}
