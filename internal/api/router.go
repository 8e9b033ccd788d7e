package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/api/handler"
	apimw "github.com/optkit/optkit/internal/api/middleware"
	"github.com/optkit/optkit/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	subs *service.SubscriptionService,
	campaigns *service.CampaignService,
	depth handler.DepthReporter,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	sh := handler.NewSubscriberHandler(subs, logger)
	ch := handler.NewCampaignHandler(campaigns, logger)
	mh := handler.NewMetricsHandler(depth)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Subscribers — the literal opt-in/opt-out segments must be registered
		// before /{email} so chi does not treat them as addresses.
		r.Post("/subscribers/opt-in", sh.OptIn)
		r.Post("/subscribers/opt-out", sh.OptOut)
		r.Get("/subscribers", sh.List)
		r.Get("/subscribers/{email}", sh.Get)
		r.Delete("/subscribers/{email}", sh.Delete)

		// Campaigns
		r.Post("/campaigns", ch.Dispatch)
		r.Get("/campaigns/{id}", ch.Get)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
