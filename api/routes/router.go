package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurumly/bullion-backend/api/controllers"
	addresscontrollers "github.com/aurumly/bullion-backend/api/controllers/addresses"
	holdingcontrollers "github.com/aurumly/bullion-backend/api/controllers/holdings"
	otpcontrollers "github.com/aurumly/bullion-backend/api/controllers/otp"
	productcontrollers "github.com/aurumly/bullion-backend/api/controllers/products"
	purchasecontrollers "github.com/aurumly/bullion-backend/api/controllers/purchases"
	ratecontrollers "github.com/aurumly/bullion-backend/api/controllers/rates"
	redemptioncontrollers "github.com/aurumly/bullion-backend/api/controllers/redemptions"
	"github.com/aurumly/bullion-backend/api/middleware"
	"github.com/aurumly/bullion-backend/internal/addresses"
	"github.com/aurumly/bullion-backend/internal/catalog"
	"github.com/aurumly/bullion-backend/internal/ledger"
	"github.com/aurumly/bullion-backend/internal/otp"
	"github.com/aurumly/bullion-backend/internal/purchases"
	"github.com/aurumly/bullion-backend/internal/rates"
	"github.com/aurumly/bullion-backend/internal/redemptions"
	"github.com/aurumly/bullion-backend/pkg/config"
	"github.com/aurumly/bullion-backend/pkg/enums"
	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Ledger      ledger.Service
	Rates       rates.Service
	Purchases   purchases.Service
	Otp         otp.Service
	Redemptions redemptions.Service
	Catalog     catalog.Service
	Addresses   addresses.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	svcs Services,
	promGatherer prometheus.Gatherer,
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
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})

	if promGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/materials/{materialID}/price", ratecontrollers.LivePrice(svcs.Rates, logg))
		r.Get("/materials/{materialID}/products", productcontrollers.ListByMaterial(svcs.Catalog, logg))

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/preview", purchasecontrollers.Preview(svcs.Purchases, logg))
			r.Post("/", purchasecontrollers.Commit(svcs.Purchases, logg))
			r.Get("/", purchasecontrollers.List(svcs.Purchases, logg))
			r.Get("/{purchaseID}", purchasecontrollers.Detail(svcs.Purchases, logg))
		})

		r.Route("/holdings", func(r chi.Router) {
			r.Get("/", holdingcontrollers.List(svcs.Ledger, logg))
			r.Get("/{materialID}/history", holdingcontrollers.History(svcs.Ledger, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Post("/", addresscontrollers.Create(svcs.Addresses, logg))
			r.Get("/", addresscontrollers.List(svcs.Addresses, logg))
		})

		otpPolicy := middleware.NewRateLimitPolicy("otp_request", cfg.OTP.RequestWindow, cfg.OTP.RequestLimit)
		r.With(middleware.RateLimit(otpPolicy, redisClient, logg)).Post("/otp/request", otpcontrollers.Request(svcs.Otp, logg))

		r.Route("/redemptions", func(r chi.Router) {
			r.Post("/", redemptioncontrollers.Create(svcs.Redemptions, logg))
			r.Get("/", redemptioncontrollers.List(svcs.Redemptions, enums.UserRoleCustomer, logg))
			r.Get("/{redemptionID}", redemptioncontrollers.Detail(svcs.Redemptions, enums.UserRoleCustomer, logg))
			r.Post("/{redemptionID}/cancel", redemptioncontrollers.Cancel(svcs.Redemptions, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleVendor, logg))
			r.Get("/redemptions", redemptioncontrollers.List(svcs.Redemptions, enums.UserRoleVendor, logg))
			r.Get("/redemptions/{redemptionID}", redemptioncontrollers.Detail(svcs.Redemptions, enums.UserRoleVendor, logg))
			r.Post("/redemptions/{redemptionID}/decision", redemptioncontrollers.VendorDecision(svcs.Redemptions, logg))
		})

		r.Route("/rider", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleRider, logg))
			r.Get("/redemptions", redemptioncontrollers.List(svcs.Redemptions, enums.UserRoleRider, logg))
			r.Get("/redemptions/{redemptionID}", redemptioncontrollers.Detail(svcs.Redemptions, enums.UserRoleRider, logg))
			r.Post("/redemptions/{redemptionID}/decision", redemptioncontrollers.RiderDecision(svcs.Redemptions, logg))
			r.Post("/redemptions/{redemptionID}/out-for-delivery", redemptioncontrollers.OutForDelivery(svcs.Redemptions, logg))
			r.Post("/redemptions/{redemptionID}/delivered", redemptioncontrollers.Delivered(svcs.Redemptions, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Get("/redemptions", redemptioncontrollers.List(svcs.Redemptions, enums.UserRoleAdmin, logg))
			r.Get("/redemptions/{redemptionID}", redemptioncontrollers.Detail(svcs.Redemptions, enums.UserRoleAdmin, logg))
			r.Post("/redemptions/{redemptionID}/decision", redemptioncontrollers.AdminDecision(svcs.Redemptions, logg))
			r.Route("/rates", func(r chi.Router) {
				r.Post("/live", ratecontrollers.SetLivePrice(svcs.Rates, logg))
				r.Post("/tax", ratecontrollers.AddTaxRate(svcs.Rates, logg))
				r.Post("/service-fee", ratecontrollers.AddServiceFeeRate(svcs.Rates, logg))
				r.Get("/{materialID}/history", ratecontrollers.PriceHistory(svcs.Rates, logg))
			})
		})
	})

	return r
}
