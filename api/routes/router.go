package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subtrack-app/subtrack-backend/api/controllers"
	"github.com/subtrack-app/subtrack-backend/api/middleware"
	"github.com/subtrack-app/subtrack-backend/internal/schedule"
	"github.com/subtrack-app/subtrack-backend/internal/subscriptions"
	"github.com/subtrack-app/subtrack-backend/pkg/config"
	"github.com/subtrack-app/subtrack-backend/pkg/db"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
	"github.com/subtrack-app/subtrack-backend/pkg/metrics"
)

// RouterParams groups everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Verifier      db.TokenVerifier
	Metrics       *metrics.HTTPMetrics
	Pingers       map[string]controllers.Pinger
	Subscriptions subscriptions.Service
	Schedule      schedule.Service
}

func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.CORS(params.Config.CORS),
		middleware.Logging(params.Logger),
		middleware.Metrics(params.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(params.Config))
		r.Get("/ready", controllers.HealthReady(params.Config, params.Logger, params.Pingers))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(params.Verifier, params.Logger))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.SubscriptionList(params.Subscriptions, params.Logger))
			r.Post("/", controllers.SubscriptionCreate(params.Subscriptions, params.Logger))

			r.Route("/{subscriptionID}", func(r chi.Router) {
				r.Get("/", controllers.SubscriptionGet(params.Subscriptions, params.Logger))
				r.Patch("/", controllers.SubscriptionEdit(params.Subscriptions, params.Logger))
				r.Delete("/", controllers.SubscriptionDelete(params.Subscriptions, params.Logger))
				r.Post("/upgrade", controllers.SubscriptionUpgrade(params.Subscriptions, params.Logger))
				r.Get("/history", controllers.SubscriptionHistory(params.Subscriptions, params.Logger))
				r.Get("/spend", controllers.SubscriptionSpend(params.Schedule, params.Logger))
			})
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/overview", controllers.ScheduleOverview(params.Schedule, params.Logger))
			r.Get("/day", controllers.ScheduleDay(params.Schedule, params.Logger))
			r.Get("/trend", controllers.ScheduleTrend(params.Schedule, params.Logger))
		})
	})

	return r
}
