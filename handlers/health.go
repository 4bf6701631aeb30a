package handlers

import (
	"net/http"
	"time"

	"github.com/upb/incident-ai-gateway/app"
	"github.com/upb/incident-ai-gateway/internal/observability"
	"github.com/upb/incident-ai-gateway/models"
	"github.com/upb/incident-ai-gateway/services/breaker"
	"github.com/upb/incident-ai-gateway/services/budget"
	"github.com/upb/incident-ai-gateway/services/requestlog"
	"github.com/upb/incident-ai-gateway/utils"
	"go.uber.org/zap"
)

const version = "0.1.0"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// RateLimitStatus describes the configured per-caller window
type RateLimitStatus struct {
	Window      string `json:"window"`
	MaxRequests int    `json:"max_requests"`
}

// StatusResponse is the body of GET /api/v1/ai/status
type StatusResponse struct {
	Version     string                         `json:"version"`
	Environment string                         `json:"environment"`
	Providers   []models.ProviderStatus        `json:"providers"`
	Breaker     breaker.Snapshot               `json:"circuit_breaker"`
	Budget      budget.Summary                 `json:"budget"`
	RateLimit   RateLimitStatus                `json:"rate_limit"`
	RequestLog  requestlog.Stats               `json:"request_log"`
	Metrics     []observability.SeriesSnapshot `json:"metrics"`
}

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessCheck reports whether requests can be served by a real provider
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		ready := true

		if deps.Providers == nil || deps.Providers.Count() == 0 {
			checks["providers"] = "none_configured"
			ready = false
		} else {
			checks["providers"] = "configured"
		}

		if deps.RequestLog == nil || !deps.RequestLog.Stats().Started {
			checks["request_log"] = "not_started"
			ready = false
		} else {
			checks["request_log"] = "running"
		}

		// An open breaker still answers with fallback content
		if deps.Breaker != nil {
			checks["circuit_breaker"] = string(deps.Breaker.State())
		}

		status := "ready"
		httpStatus := http.StatusOK
		if !ready {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		}
		if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
			deps.Logger.Error("failed to write readiness response", zap.Error(err))
		}
	}
}

// StatusHandler returns a snapshot of the gateway's gates and counters
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics, err := deps.Metrics.Snapshot(r.Context())
		if err != nil {
			deps.Logger.Warn("failed to collect metrics", zap.Error(err))
		}
		response := StatusResponse{
			Version:     version,
			Environment: deps.Config.Environment,
			Providers:   deps.Manager.GetProviderStatus(),
			Breaker:     deps.Breaker.Snapshot(),
			Budget:      deps.Budget.Snapshot(),
			RateLimit: RateLimitStatus{
				Window:      deps.Config.RateLimit.Window.String(),
				MaxRequests: deps.Config.RateLimit.MaxRequests,
			},
			RequestLog: deps.RequestLog.Stats(),
			Metrics:    metrics,
		}
		if err := utils.WriteOK(w, response); err != nil {
			deps.Logger.Error("failed to write status response", zap.Error(err))
		}
	}
}
