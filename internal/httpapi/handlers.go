package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/ingest"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/loader"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/logring"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/service"
)

const maxDatasetBytes = 32 << 20

type Handlers struct {
	svc  *service.Service
	logs *logring.Buffer
}

func NewHandlers(svc *service.Service, logs *logring.Buffer) *Handlers {
	return &Handlers{svc: svc, logs: logs}
}

// Health check
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Info describes the service
// GET /api
func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":    "Analizador de Patrones",
		"version": "1.0.0",
		"endpoints": []string{
			"GET /api/system/status",
			"GET /api/system/logs",
			"POST /api/ingest",
			"GET /api/clients/{id}/timeline",
			"GET /api/clients/{id}/debt",
			"GET /api/agents/{id}/effectiveness",
			"GET /api/analytics/promise-links",
			"GET /api/analytics/broken-promises",
			"GET /api/analytics/best-time-slots",
			"GET /api/dashboard/kpis",
			"GET /api/dashboard/activity",
			"GET /api/dashboard/funnel",
			"GET /api/dashboard/promises-risk",
			"GET /api/graph",
			"POST /api/graph/search",
		},
	})
}

// SystemStatus reports dependency health
// GET /api/system/status
func (h *Handlers) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := h.svc.SystemStatus(r.Context())
	code := http.StatusOK
	if status.Status == service.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}

// Logs returns recent log entries, newest first
// GET /api/system/logs?limit={n}&service={name}
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		respondError(w, r, http.StatusServiceUnavailable, "unavailable", "log buffer not configured")
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		respondServiceError(w, r, "logs", err)
		return
	}

	entries := h.logs.Entries(limit, r.URL.Query().Get("service"))
	respondJSON(w, http.StatusOK, map[string]any{
		"logs":     entries,
		"total":    len(entries),
		"services": logring.Services,
	})
}

// IngestResponse is returned by POST /api/ingest
type IngestResponse struct {
	Report            *ingest.Report     `json:"report"`
	Placeholders      int                `json:"placeholders"`
	InvalidTimestamps int                `json:"invalid_timestamps"`
	Rejected          []loader.Rejection `json:"rejected"`
}

// Ingest loads a JSON dataset and runs the ingestion pipeline
// POST /api/ingest
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	result, err := loader.LoadJSON(http.MaxBytesReader(w, r.Body, maxDatasetBytes))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_dataset", err.Error())
		return
	}
	if n := len(result.Rejected); n > 0 {
		slog.WarnContext(r.Context(), "dataset_records_rejected", "component", "api", "count", n)
	}

	report, err := h.svc.Ingest(r.Context(), result.Dataset)
	if err != nil {
		respondServiceError(w, r, "ingest", err)
		return
	}

	rejected := result.Rejected
	if rejected == nil {
		rejected = []loader.Rejection{}
	}
	respondJSON(w, http.StatusCreated, IngestResponse{
		Report:            report,
		Placeholders:      result.Placeholders,
		InvalidTimestamps: result.InvalidTimestamps,
		Rejected:          rejected,
	})
}

// ClientTimeline returns a client's interaction history
// GET /api/clients/{id}/timeline
func (h *Handlers) ClientTimeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := h.svc.ClientTimeline(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, "client_timeline", err)
		return
	}
	respondJSON(w, http.StatusOK, timeline)
}

// ClientDebt returns a client's balance
// GET /api/clients/{id}/debt
func (h *Handlers) ClientDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := h.svc.ClientDebt(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, "client_debt", err)
		return
	}
	respondJSON(w, http.StatusOK, debt)
}

// AgentEffectiveness returns an agent's performance
// GET /api/agents/{id}/effectiveness
func (h *Handlers) AgentEffectiveness(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.AgentEffectiveness(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, "agent_effectiveness", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// PromiseLinks returns raw promise/payment links
// GET /api/analytics/promise-links?client_id={id}&grace_hours={n}
func (h *Handlers) PromiseLinks(w http.ResponseWriter, r *http.Request) {
	grace, err := queryInt(r, "grace_hours", service.ConfiguredGrace)
	if err != nil {
		respondServiceError(w, r, "promise_links", err)
		return
	}

	links, err := h.svc.PromiseLinks(r.Context(), r.URL.Query().Get("client_id"), grace)
	if err != nil {
		respondServiceError(w, r, "promise_links", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"links": links,
		"total": len(links),
	})
}

// BrokenPromises lists overdue broken promises
// GET /api/analytics/broken-promises?days_overdue={n}
func (h *Handlers) BrokenPromises(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days_overdue", 0)
	if err != nil {
		respondServiceError(w, r, "broken_promises", err)
		return
	}

	report, err := h.svc.BrokenPromises(r.Context(), days)
	if err != nil {
		respondServiceError(w, r, "broken_promises", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// BestTimeSlots ranks contact slots
// GET /api/analytics/best-time-slots?min_samples={n}
func (h *Handlers) BestTimeSlots(w http.ResponseWriter, r *http.Request) {
	minSamples, err := queryInt(r, "min_samples", h.svc.Config().MinSampleSize)
	if err != nil {
		respondServiceError(w, r, "best_time_slots", err)
		return
	}

	report, err := h.svc.BestTimeSlots(r.Context(), minSamples)
	if err != nil {
		respondServiceError(w, r, "best_time_slots", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GET /api/dashboard/kpis
func (h *Handlers) DashboardKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.svc.DashboardKPIs(r.Context())
	if err != nil {
		respondServiceError(w, r, "dashboard_kpis", err)
		return
	}
	respondJSON(w, http.StatusOK, kpis)
}

// GET /api/dashboard/activity
func (h *Handlers) DashboardActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.svc.DashboardActivity(r.Context())
	if err != nil {
		respondServiceError(w, r, "dashboard_activity", err)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// GET /api/dashboard/funnel
func (h *Handlers) DashboardFunnel(w http.ResponseWriter, r *http.Request) {
	funnel, err := h.svc.DashboardFunnel(r.Context())
	if err != nil {
		respondServiceError(w, r, "dashboard_funnel", err)
		return
	}
	respondJSON(w, http.StatusOK, funnel)
}

// GET /api/dashboard/promises-risk
func (h *Handlers) PromisesRisk(w http.ResponseWriter, r *http.Request) {
	risks, err := h.svc.PromisesRisk(r.Context())
	if err != nil {
		respondServiceError(w, r, "promises_risk", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"promises": risks,
		"total":    len(risks),
	})
}

// GraphView returns nodes and edges for the graph view
// GET /api/graph?source={dataset|graphiti}
func (h *Handlers) GraphView(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GraphView(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		respondServiceError(w, r, "graph_view", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Search proxies a Graphiti search
// POST /api/graph/search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req graphiti.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.svc.Search(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "graph_search", err)
		return
	}
	if result.Facts == nil {
		result.Facts = []graphiti.Fact{}
	}
	respondJSON(w, http.StatusOK, result)
}
