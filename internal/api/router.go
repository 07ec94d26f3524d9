package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/api/handler"
	apimw "github.com/postloop/autopublisher/internal/api/middleware"
	"github.com/postloop/autopublisher/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	queueSvc *service.QueueService,
	policySvc *service.PolicyService,
	planSvc *service.PlanService,
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
	qh := handler.NewQueueHandler(queueSvc, logger)
	ph := handler.NewPolicyHandler(policySvc, logger)
	gh := handler.NewPlanHandler(planSvc, logger)
	sh := handler.NewStatusHandler(queueSvc, policySvc)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1/tenants/{tenantID}", func(r chi.Router) {
		// Queue — fixed segments (batch, insert, recalculate) are
		// registered before /{id} so chi does not treat them as IDs.
		r.Post("/queue/batch", qh.AppendBatch)
		r.Post("/queue/insert", qh.InsertAfter)
		r.Post("/queue/recalculate", qh.Recalculate)
		r.Post("/queue", qh.Append)
		r.Get("/queue", qh.List)
		r.Delete("/queue/{id}", qh.Delete)
		r.Post("/queue/{id}/publish", qh.Publish)
		r.Post("/queue/{id}/skip", qh.Skip)

		// Policy
		r.Get("/policy", ph.Get)
		r.Put("/policy", ph.Upsert)
		r.Post("/policy/active", ph.SetActive)
		r.Post("/policy/toggle/{field}", ph.Toggle)
		r.Get("/next-slot", ph.NextSlot)

		// Content plan
		r.Post("/plan/generate", gh.Generate)
		r.Post("/plan/regenerate", gh.Regenerate)

		// JSON snapshot
		r.Get("/status", sh.Status)
	})

	return r
}
