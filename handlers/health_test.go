package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/incident-ai-gateway/app"
	"github.com/upb/incident-ai-gateway/config"
	"go.uber.org/zap"
)

func newTestDependencies(t *testing.T, withProvider bool) *app.Dependencies {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		AI:          config.AIConfig{FallbackModel: "openai/gpt-4o-mini"},
		RateLimit:   config.RateLimitConfig{Window: time.Minute, MaxRequests: 10},
		Budget:      config.BudgetConfig{DailyLimit: 10, Timezone: "UTC"},
		Breaker:     config.BreakerConfig{FailureThreshold: 5, SuccessThreshold: 3, Timeout: time.Minute},
		RequestLog:  config.RequestLogConfig{BufferSize: 10, Workers: 1},
	}
	if withProvider {
		cfg.Providers.OpenRouter = config.ProviderConfig{
			APIKey:   "test-key",
			BaseURL:  "http://127.0.0.1:0",
			Models:   []string{"openai/gpt-4o-mini"},
			Priority: 1,
		}
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })
	return deps
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var health HealthResponse
	decodeData(t, w, &health)
	return health
}

func TestHealthCheck(t *testing.T) {
	deps := newTestDependencies(t, false)

	w := httptest.NewRecorder()
	HealthCheck(deps)(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	health := decodeHealth(t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.NotEmpty(t, health.Timestamp)
}

func TestReadinessCheck(t *testing.T) {
	t.Run("not ready without providers", func(t *testing.T) {
		deps := newTestDependencies(t, false)

		w := httptest.NewRecorder()
		ReadinessCheck(deps)(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		health := decodeHealth(t, w)
		assert.Equal(t, "not_ready", health.Status)
		assert.Equal(t, "none_configured", health.Checks["providers"])
		assert.Equal(t, "running", health.Checks["request_log"])
	})

	t.Run("ready with a provider", func(t *testing.T) {
		deps := newTestDependencies(t, true)

		w := httptest.NewRecorder()
		ReadinessCheck(deps)(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		health := decodeHealth(t, w)
		assert.Equal(t, "ready", health.Status)
		assert.Equal(t, "configured", health.Checks["providers"])
		assert.Equal(t, "closed", health.Checks["circuit_breaker"])
	})

	t.Run("open breaker stays ready", func(t *testing.T) {
		deps := newTestDependencies(t, true)
		for i := 0; i < 5; i++ {
			deps.Breaker.RecordFailure()
		}

		w := httptest.NewRecorder()
		ReadinessCheck(deps)(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "open", decodeHealth(t, w).Checks["circuit_breaker"])
	})
}

func TestStatusHandler(t *testing.T) {
	deps := newTestDependencies(t, true)
	require.NoError(t, deps.Budget.TrackRequest(1.5))

	w := httptest.NewRecorder()
	StatusHandler(deps)(w, httptest.NewRequest(http.MethodGet, "/api/v1/ai/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var raw map[string]json.RawMessage
	decodeData(t, w, &raw)
	for _, key := range []string{"version", "environment", "providers", "circuit_breaker", "budget", "rate_limit", "request_log", "metrics"} {
		assert.Contains(t, raw, key)
	}

	var status StatusResponse
	w2 := httptest.NewRecorder()
	StatusHandler(deps)(w2, httptest.NewRequest(http.MethodGet, "/api/v1/ai/status", nil))
	decodeData(t, w2, &status)

	assert.Equal(t, "test", status.Environment)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "openrouter", status.Providers[0].Name)
	assert.Equal(t, "closed", string(status.Breaker.State))
	assert.InDelta(t, 1.5, status.Budget.Spend, 1e-9)
	assert.InDelta(t, 10.0, status.Budget.Limit, 1e-9)
	assert.Equal(t, "1m0s", status.RateLimit.Window)
	assert.Equal(t, 10, status.RateLimit.MaxRequests)
	assert.True(t, status.RequestLog.Started)
}
