package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimbusvr/trackshop-backend/api/controllers"
	webhookcontrollers "github.com/nimbusvr/trackshop-backend/api/controllers/webhooks"
	"github.com/nimbusvr/trackshop-backend/api/middleware"
	checkoutsvc "github.com/nimbusvr/trackshop-backend/internal/checkout"
	"github.com/nimbusvr/trackshop-backend/internal/reconciliation"
	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/dlocalgo"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
	"github.com/nimbusvr/trackshop-backend/pkg/metrics"
	"github.com/nimbusvr/trackshop-backend/pkg/paypal"
)

// Deps carries everything the HTTP surface needs. cmd/api builds it once at
// startup; nothing here is constructed lazily.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        controllers.Pinger
	RedisPinger     controllers.Pinger
	CheckoutService *checkoutsvc.Service
	TrackingRepo    tracking.Repository
	Guard           *tracking.Guard
	Engine          *reconciliation.Engine
	ReplayGuard     *reconciliation.ReplayGuard
	DLocalGo        *dlocalgo.Client
	PayPal          *paypal.Client
	Metrics         *metrics.ReconcileMetrics
	PromGatherer    prometheus.Gatherer
}


func NewRouter(deps Deps) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, logg, map[string]controllers.Pinger{
			"database": deps.DBPinger,
			"redis":    deps.RedisPinger,
		}))
	})

	gatherer := deps.PromGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/dlocalgo", webhookcontrollers.DLocalGoWebhook(deps.DLocalGo, deps.Engine, deps.ReplayGuard, deps.Metrics, logg))
			r.Post("/paypal", webhookcontrollers.PayPalIPN(deps.PayPal, deps.Engine, deps.ReplayGuard, deps.Metrics, logg))
		})

		publicURL := strings.TrimRight(deps.Config.App.PublicURL, "/")
		r.Get("/payments/paypal/return", controllers.PayPalReturn(
			deps.PayPal,
			deps.Engine,
			publicURL+deps.Config.Checkout.SuccessPath,
			publicURL+deps.Config.Checkout.CancelPath,
			logg,
		))
		r.Get("/payments/{token}/status", controllers.PaymentStatus(deps.DLocalGo, deps.PayPal, deps.TrackingRepo, logg))

		r.Route("/tracking", func(r chi.Router) {
			r.Get("/by-name/{name}", controllers.TrackingByName())
			r.Get("/{hash}", controllers.TrackingByHash(deps.TrackingRepo, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAPIKey(deps.Config.Admin.APIKey, logg))
		r.Get("/tracking", controllers.AdminListTracking(deps.TrackingRepo, logg))
		r.Put("/tracking/{id}", controllers.AdminUpdateTracking(deps.TrackingRepo, deps.Guard, logg))
	})

	return r
}
