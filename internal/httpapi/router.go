package httpapi

import (
	"net/http"
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/logring"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/middleware"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/service"
)

type Options struct {
	AllowedOrigins []string
	// RequestTimeout bounds every route except POST /api/ingest, which
	// sends facts to Graphiti in batches and gets IngestTimeout instead.
	RequestTimeout time.Duration
	IngestTimeout  time.Duration
	Logs           *logring.Buffer
}

func NewRouter(svc *service.Service, opts Options) http.Handler {
	h := NewHandlers(svc, opts.Logs)
	mux := http.NewServeMux()

	query := middleware.Timeout(opts.RequestTimeout)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, query(fn))
	}

	handle("GET /health", h.Health)
	handle("GET /api", h.Info)

	// System
	handle("GET /api/system/status", h.SystemStatus)
	handle("GET /api/system/logs", h.Logs)
	mux.Handle("POST /api/ingest", middleware.Timeout(opts.IngestTimeout)(http.HandlerFunc(h.Ingest)))

	// Clients and agents
	handle("GET /api/clients/{id}/timeline", h.ClientTimeline)
	handle("GET /api/clients/{id}/debt", h.ClientDebt)
	handle("GET /api/agents/{id}/effectiveness", h.AgentEffectiveness)

	// Analytics
	handle("GET /api/analytics/promise-links", h.PromiseLinks)
	handle("GET /api/analytics/broken-promises", h.BrokenPromises)
	handle("GET /api/analytics/best-time-slots", h.BestTimeSlots)

	// Dashboard
	handle("GET /api/dashboard/kpis", h.DashboardKPIs)
	handle("GET /api/dashboard/activity", h.DashboardActivity)
	handle("GET /api/dashboard/funnel", h.DashboardFunnel)
	handle("GET /api/dashboard/promises-risk", h.PromisesRisk)

	// Graph
	handle("GET /api/graph", h.GraphView)
	handle("POST /api/graph/search", h.Search)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return applyMiddleware(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recovery,
		middleware.CORS(origins),
	)
}

func applyMiddleware(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	// Apply in reverse order so first middleware is outermost
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
