package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderdeskhq/orderdesk-backend/api/controllers"
	webhookcontrollers "github.com/orderdeskhq/orderdesk-backend/api/controllers/webhooks"
	"github.com/orderdeskhq/orderdesk-backend/api/middleware"
	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/internal/triage"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Cache          controllers.Pinger
	IngestService  webhookcontrollers.IngestService
	TriageService  *triage.Service
	WebhookMetrics *metrics.WebhookMetrics
	Registry       *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, params.DB, params.Cache, logg))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		// Some webhook origins probe the endpoint with a GET before the
		// first delivery; answer it instead of returning 405.
		r.Get("/orders", func(w http.ResponseWriter, req *http.Request) {
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
		})
		r.Post("/orders", webhookcontrollers.OrdersWebhook(params.IngestService, params.WebhookMetrics, logg))
	})

	if params.TriageService != nil {
		r.Route("/api/v1/triage", func(r chi.Router) {
			r.Get("/dead-letters", controllers.TriageDeadLetters(params.TriageService, logg))
			r.Get("/webhook-events", controllers.TriageWebhookEvents(params.TriageService, logg))
			r.Post("/replay", controllers.TriageReplay(params.TriageService, logg))
		})
	}

	return r
}
