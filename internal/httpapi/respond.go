package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/middleware"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/service"
)

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	respondJSON(w, statusCode, map[string]any{
		"error": map[string]any{
			"code":       code,
			"message":    message,
			"request_id": middleware.GetRequestID(r.Context()),
		},
	})
}

// respondServiceError maps service errors to status codes. Anything
// unrecognised is logged and hidden behind a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var upstream *graphiti.HTTPError
	switch {
	case errors.Is(err, service.ErrInvalidParameter):
		respondError(w, r, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, service.ErrClientNotFound), errors.Is(err, service.ErrAgentNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, "unavailable", err.Error())
	case errors.As(err, &upstream):
		slog.WarnContext(r.Context(), op+"_upstream_failed", "component", "api", "error", err)
		respondError(w, r, http.StatusBadGateway, "upstream_error", fmt.Sprintf("graphiti returned %d", upstream.StatusCode))
	default:
		slog.ErrorContext(r.Context(), op+"_failed", "component", "api", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
}

// queryInt reads a non-negative integer query parameter. A missing
// parameter yields def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", service.ErrInvalidParameter, name)
	}
	return v, nil
}
