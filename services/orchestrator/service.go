package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/upb/incident-ai-gateway/internal/observability"
	"github.com/upb/incident-ai-gateway/models"
	"github.com/upb/incident-ai-gateway/services/providers"
	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Manager runs every AI request through admission control, the circuit
// breaker and the provider/model fallback chain.
type Manager struct {
	providers  ProviderSource
	limiter    RateLimiter
	costs      CostTracker
	breaker    Breaker
	fallback   FallbackGenerator
	requestLog RequestLogger
	metrics    observability.Metrics
	config     Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewManager creates a new Manager instance
func NewManager(deps Dependencies, cfg Config, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}

	m := &Manager{
		providers:  deps.Providers,
		limiter:    deps.RateLimiter,
		costs:      deps.CostTracker,
		breaker:    deps.Breaker,
		fallback:   deps.Fallback,
		requestLog: deps.RequestLog,
		metrics:    metrics,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetProviderStatus lists the registered providers in priority order
func (m *Manager) GetProviderStatus() []models.ProviderStatus {
	return m.providers.Status()
}

// SendRequest resolves req to exactly one response. Failures are reported
// inside the response, never as a Go error.
func (m *Manager) SendRequest(ctx context.Context, req *models.AIRequest) *models.AIResponse {
	state := &requestState{
		req:    req,
		caller: req.CallerKey(),
		start:  m.now(),
	}

	if m.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.RequestTimeout)
		defer cancel()
	}

	logger := observability.LoggerFrom(ctx, m.logger).With(
		zap.String("request_id", req.RequestID),
		zap.String("caller", state.caller),
	)
	logger.Info("starting ai request",
		zap.String("model", req.Model),
		zap.String("operation", req.Operation()))

	resp := m.process(ctx, state, logger)
	if resp.RequestID == "" {
		resp.RequestID = req.RequestID
	}

	m.record(state, resp, m.now().Sub(state.start), logger)
	return resp
}

func (m *Manager) process(ctx context.Context, state *requestState, logger *zap.Logger) *models.AIResponse {
	req := state.req

	// Step 1: Providers
	logger.Debug("step 1: checking provider configuration")
	enabled := m.providers.Enabled()
	if len(enabled) == 0 {
		return m.fail(state, models.ErrorKindConfiguration, "no AI providers configured")
	}

	// Step 2: Rate limit
	logger.Debug("step 2: checking rate limit")
	if !m.limiter.Configured() {
		return m.fail(state, models.ErrorKindConfiguration,
			"rate limiter is misconfigured: window and request ceiling must be positive")
	}
	if !m.limiter.IsAllowed(state.caller) {
		logger.Warn("rate limit exceeded")
		return m.fail(state, models.ErrorKindRateLimited,
			"Rate limit exceeded. Please wait before making more AI requests.")
	}

	// Step 3: Daily budget
	logger.Debug("step 3: checking daily cost limit")
	if !m.costs.IsWithinDailyLimit() {
		logger.Warn("daily cost limit exceeded")
		return m.fail(state, models.ErrorKindBudgetExceeded,
			"Daily cost limit exceeded. AI features will be available again tomorrow.")
	}

	// Step 4: Circuit breaker
	logger.Debug("step 4: checking circuit breaker")
	if !m.breaker.CanExecute() {
		logger.Warn("circuit breaker open, serving fallback content")
		resp := *m.fallback.Generate(req)
		resp.RequestID = req.RequestID
		resp.Degraded = true
		return &resp
	}

	// Step 5: Model chain
	chain := m.modelChain(req.Model)
	if len(chain) == 0 {
		return m.fail(state, models.ErrorKindConfiguration, "no model requested and no fallback model configured")
	}
	logger.Debug("step 5: executing model chain", zap.Strings("models", chain))

	var lastErr string
	for _, model := range chain {
		state.modelsTried = append(state.modelsTried, model)
		attemptReq := req
		if model != req.Model {
			attemptReq = req.WithModel(model)
		}

		for _, provider := range enabled {
			if !provider.SupportsModel(model) {
				continue
			}
			if err := ctx.Err(); err != nil {
				logger.Warn("request cancelled between attempts", zap.Error(err))
				return m.fail(state, models.ErrorKindCancelled, fmt.Sprintf("request cancelled: %v", err))
			}

			state.attempts++
			resp := m.attempt(ctx, provider, attemptReq, logger)
			if resp.Success {
				m.breaker.RecordSuccess()
				if resp.Cost != nil {
					if err := m.costs.TrackRequest(*resp.Cost); err != nil {
						logger.Error("failed to track request cost", zap.Error(err))
					}
				}
				out := *resp
				out.Degraded = false
				out.Attempts = state.attempts
				logger.Info("ai request completed",
					zap.String("provider", out.Provider),
					zap.String("model", out.Model),
					zap.Int("attempts", state.attempts))
				return &out
			}

			// A call cut short by the caller says nothing about upstream health
			if err := ctx.Err(); err != nil {
				logger.Warn("request cancelled during provider call",
					zap.String("provider", provider.Name()),
					zap.Error(err))
				return m.fail(state, models.ErrorKindCancelled, fmt.Sprintf("request cancelled: %v", err))
			}

			m.breaker.RecordFailure()
			lastErr = fmt.Sprintf("%s: %s", provider.Name(), resp.Error)
			logger.Warn("provider attempt failed",
				zap.String("provider", provider.Name()),
				zap.String("model", model),
				zap.String("error", resp.Error))
		}
	}

	if state.attempts == 0 {
		return m.fail(state, models.ErrorKindUpstream,
			fmt.Sprintf("no enabled provider supports models %s", strings.Join(chain, ", ")))
	}
	return m.fail(state, models.ErrorKindUpstream,
		fmt.Sprintf("all providers failed for models %s: last error: %s", strings.Join(chain, ", "), lastErr))
}

// attempt makes exactly one provider call and records its metrics. The
// returned value is a copy; the provider's response is left untouched.
func (m *Manager) attempt(ctx context.Context, provider providers.Provider, req *models.AIRequest, logger *zap.Logger) *models.AIResponse {
	logger.Debug("calling provider",
		zap.String("provider", provider.Name()),
		zap.String("model", req.Model))

	start := m.now()
	result := provider.SendRequest(ctx, req)
	if result == nil {
		result = providers.Failure(req, provider.Name(), "provider returned no response", start)
	}
	resp := *result
	if resp.Provider == "" {
		resp.Provider = provider.Name()
	}
	if !resp.Success && resp.Error == "" {
		resp.Error = "unknown provider error"
	}

	labels := observability.RequestLabels{
		Provider: provider.Name(),
		Model:    req.Model,
		Status:   lo.Ternary(resp.Success, statusSuccess, statusFailure),
	}
	m.metrics.RecordRequest(ctx, labels)
	m.metrics.RecordLatency(ctx, m.now().Sub(start), labels)
	if resp.TokensUsed != nil {
		m.metrics.RecordTokens(ctx, *resp.TokensUsed, labels)
	}
	if resp.Cost != nil {
		m.metrics.RecordCost(ctx, *resp.Cost, labels)
	}
	return &resp
}

// modelChain is the requested model followed by the configured fallback
// model when it differs. An empty request model goes straight to the
// fallback.
func (m *Manager) modelChain(requested string) []string {
	requested = strings.TrimSpace(requested)
	fallback := strings.TrimSpace(m.config.FallbackModel)

	chain := make([]string, 0, 2)
	if requested != "" {
		chain = append(chain, requested)
	}
	if fallback != "" && fallback != requested {
		chain = append(chain, fallback)
	}
	return chain
}

func (m *Manager) fail(state *requestState, kind models.ErrorKind, message string) *models.AIResponse {
	resp := models.NewFailedResponse(state.req, kind, message, m.now().Sub(state.start))
	resp.Attempts = state.attempts
	return resp
}

// record emits the request log entry for a finished request. elapsed
// covers the whole request, gates and every attempt included.
func (m *Manager) record(state *requestState, resp *models.AIResponse, elapsed time.Duration, logger *zap.Logger) {
	if m.requestLog == nil {
		return
	}

	entry := &models.RequestLogEntry{
		RequestID:   resp.RequestID,
		Caller:      state.caller,
		Operation:   state.req.Operation(),
		Outcome:     outcomeOf(resp),
		ErrorKind:   resp.ErrorKind,
		Error:       resp.Error,
		Model:       resp.Model,
		Provider:    resp.Provider,
		ModelsTried: state.modelsTried,
		Attempts:    state.attempts,
		DurationMs:  elapsed.Milliseconds(),
		CompletedAt: m.now(),
	}
	if resp.TokensUsed != nil {
		entry.TokensUsed = *resp.TokensUsed
	}
	if resp.Cost != nil {
		entry.Cost = *resp.Cost
	}

	if err := m.requestLog.Record(entry); err != nil {
		logger.Warn("failed to record request log entry", zap.Error(err))
	}
}

func outcomeOf(resp *models.AIResponse) models.RequestOutcome {
	switch {
	case resp.Success && resp.Degraded:
		return models.OutcomeDegraded
	case resp.Success:
		return models.OutcomeSuccess
	case resp.ErrorKind == models.ErrorKindRateLimited, resp.ErrorKind == models.ErrorKindBudgetExceeded:
		return models.OutcomeDenied
	default:
		return models.OutcomeFailed
	}
}
