package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthCheck is one named dependency probe
type HealthCheck func(ctx context.Context) error

// HealthChecker handles health check requests
type HealthChecker struct {
	checks map[string]HealthCheck
	logger *zap.Logger
}

// NewHealthChecker creates a new health checker. Checks run only in extended mode.
func NewHealthChecker(checks map[string]HealthCheck, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthChecker{checks: checks, logger: logger}
}

// RegisterRoutes registers /healthz
func (h *HealthChecker) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		response.Checks = make(map[string]string, len(names))
		for _, name := range names {
			if err := h.checks[name](ctx); err != nil {
				h.logger.Warn("health_check_failed", zap.String("check", name), zap.Error(err))
				response.Status = "unhealthy"
				response.Checks[name] = "unhealthy"
				continue
			}
			response.Checks[name] = "healthy"
		}
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed_to_encode_health_response", zap.Error(err))
	}
}
