package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/incident-ai-gateway/config"
	"github.com/upb/incident-ai-gateway/models"
	"go.uber.org/zap/zaptest"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization without providers", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		// Verify infrastructure
		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.Logger)

		// Verify components
		assert.NotNil(t, deps.Providers)
		assert.Equal(t, 0, deps.Providers.Count())
		assert.NotNil(t, deps.RateLimiter)
		assert.NotNil(t, deps.Budget)
		assert.NotNil(t, deps.Breaker)
		assert.NotNil(t, deps.Fallback)
		assert.NotNil(t, deps.Metrics)
		assert.NotNil(t, deps.Manager)
		assert.True(t, deps.RequestLog.Stats().Started)

		// Cleanup
		err = deps.Close(ctx)
		assert.NoError(t, err)
	})

	t.Run("registers configured providers in priority order", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Providers.OpenRouter = config.ProviderConfig{APIKey: "or", Models: []string{"openai/gpt-4o-mini"}, Priority: 1}
		cfg.Providers.Anthropic = config.ProviderConfig{APIKey: "ant", Models: []string{"claude-3-haiku"}, Priority: 3}

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer deps.Close(context.Background())

		status := deps.Manager.GetProviderStatus()
		require.Len(t, status, 2)
		assert.Equal(t, "openrouter", status[0].Name)
		assert.Equal(t, "anthropic", status[1].Name)
		assert.True(t, status[0].Enabled)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Budget.Timezone = "Not/AZone"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize gates")
	})
}

func TestDependencies_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "Fall in the garden"}},
			},
			"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.Providers.OpenRouter = config.ProviderConfig{
		APIKey:   "or",
		BaseURL:  upstream.URL,
		Models:   []string{"openai/gpt-4o-mini"},
		Priority: 1,
		Timeout:  5 * time.Second,
	}

	deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	req := models.NewAIRequest("openai/gpt-4o-mini", "Suggest a title")
	resp := deps.Manager.SendRequest(context.Background(), req)

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Fall in the garden", resp.Text)
	assert.Equal(t, "openrouter", resp.Provider)
	assert.Equal(t, int32(1), calls.Load())
	assert.Greater(t, deps.Budget.Snapshot().Spend, 0.0)

	series, err := deps.Metrics.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "openrouter", series[0].Provider)
	assert.Equal(t, int64(1), series[0].Requests)
	assert.Equal(t, int64(15), series[0].Tokens)

	require.NoError(t, deps.Close(context.Background()))
	assert.Equal(t, int64(1), deps.RequestLog.Stats().Written)

	// The meter provider is shut down with the rest
	_, err = deps.Metrics.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestDependenciesClose(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		ctx := context.Background()
		deps, err := NewDependencies(ctx, testConfig(t), zaptest.NewLogger(t))
		require.NoError(t, err)

		// Close should succeed
		assert.NoError(t, deps.Close(ctx))

		// Second close reports the already-stopped request log
		assert.Error(t, deps.Close(ctx))
	})

	t.Run("close with deadline", func(t *testing.T) {
		deps, err := NewDependencies(context.Background(), testConfig(t), zaptest.NewLogger(t))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, deps.Close(ctx))
	})
}

// Test helpers

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		AI: config.AIConfig{
			DefaultModel:  "openai/gpt-4o-mini",
			FallbackModel: "openai/gpt-4o-mini",
		},
		RateLimit: config.RateLimitConfig{
			Window:      time.Minute,
			MaxRequests: 10,
		},
		Budget: config.BudgetConfig{
			DailyLimit: 10,
			Timezone:   "UTC",
		},
		Breaker: config.BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Timeout:          time.Minute,
		},
		RequestLog: config.RequestLogConfig{
			BufferSize: 10,
			Workers:    1,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "json",
		},
	}
}
