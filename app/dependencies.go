package app

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/incident-ai-gateway/config"
	"github.com/upb/incident-ai-gateway/internal/observability"
	"github.com/upb/incident-ai-gateway/services/breaker"
	"github.com/upb/incident-ai-gateway/services/budget"
	"github.com/upb/incident-ai-gateway/services/fallback"
	"github.com/upb/incident-ai-gateway/services/orchestrator"
	"github.com/upb/incident-ai-gateway/services/providers"
	"github.com/upb/incident-ai-gateway/services/providers/anthropic"
	"github.com/upb/incident-ai-gateway/services/providers/openai"
	"github.com/upb/incident-ai-gateway/services/ratelimit"
	"github.com/upb/incident-ai-gateway/services/requestlog"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Provider Registry
	Providers *providers.Registry

	// Gates
	RateLimiter *ratelimit.RateLimitService
	Budget      *budget.BudgetService
	Breaker     *breaker.CircuitBreaker

	// Degraded mode and bookkeeping
	Fallback   *fallback.Generator
	RequestLog *requestlog.Service
	Metrics    *observability.MeterMetrics

	// Orchestration
	Manager *orchestrator.Manager

	stopWorkers context.CancelFunc
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize provider registry
	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	// Initialize rate limiter, budget and breaker
	if err := deps.initGates(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize gates: %w", err)
	}

	// Initialize request log dispatcher
	if err := deps.initRequestLog(cfg); err != nil {
		deps.stopWorkers()
		return nil, fmt.Errorf("failed to initialize request log: %w", err)
	}

	metrics, err := observability.NewMeterMetrics()
	if err != nil {
		deps.stopWorkers()
		_ = deps.RequestLog.Stop(defaultStopTimeout)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	deps.Metrics = metrics

	deps.Fallback = fallback.NewGenerator()
	deps.Manager = orchestrator.NewManager(orchestrator.Dependencies{
		Providers:   deps.Providers,
		RateLimiter: deps.RateLimiter,
		CostTracker: deps.Budget,
		Breaker:     deps.Breaker,
		Fallback:    deps.Fallback,
		RequestLog:  deps.RequestLog,
		Metrics:     deps.Metrics,
	}, orchestrator.Config{
		FallbackModel:  cfg.AI.FallbackModel,
		RequestTimeout: cfg.AI.RequestTimeout,
	}, logger.Named("orchestrator"))

	logger.Info("all dependencies initialized successfully",
		zap.Int("providers", deps.Providers.Count()))
	return deps, nil
}

// initProviders registers every provider that has credentials
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()
	providerLogger := d.Logger.Named("provider")

	// Register OpenRouter provider if configured
	if p := cfg.Providers.OpenRouter; p.Configured() {
		if p.BaseURL == "" {
			p.BaseURL = openai.OpenRouterBaseURL
		}
		adapter := openai.NewAdapter(providers.ProviderConfig{
			Name:     "openrouter",
			APIKey:   p.APIKey,
			BaseURL:  p.BaseURL,
			Models:   p.Models,
			Priority: p.Priority,
			Enabled:  true,
			Timeout:  p.Timeout,
			Headers:  map[string]string{"X-Title": "Incident AI Gateway"},
		}, providerLogger)
		if err := registry.Register(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered OpenRouter provider", zap.Strings("models", p.Models))
	}

	// Register OpenAI provider if configured
	if p := cfg.Providers.OpenAI; p.Configured() {
		adapter := openai.NewAdapter(providers.ProviderConfig{
			Name:             "openai",
			APIKey:           p.APIKey,
			BaseURL:          p.BaseURL,
			Models:           p.Models,
			Priority:         p.Priority,
			Enabled:          true,
			Timeout:          p.Timeout,
			StripModelVendor: true,
		}, providerLogger)
		if err := registry.Register(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered OpenAI provider", zap.Strings("models", p.Models))
	}

	// Register Anthropic provider if configured
	if p := cfg.Providers.Anthropic; p.Configured() {
		adapter := anthropic.NewAdapter(providers.ProviderConfig{
			Name:             "anthropic",
			APIKey:           p.APIKey,
			BaseURL:          p.BaseURL,
			Models:           p.Models,
			Priority:         p.Priority,
			Enabled:          true,
			Timeout:          p.Timeout,
			StripModelVendor: true,
		}, providerLogger)
		if err := registry.Register(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered Anthropic provider", zap.Strings("models", p.Models))
	}

	if registry.Count() == 0 {
		d.Logger.Warn("no AI providers configured, requests will fail with a configuration error")
	}

	d.Providers = registry
	return nil
}

func (d *Dependencies) initGates(ctx context.Context, cfg *config.Config) error {
	loc, err := cfg.Budget.Location()
	if err != nil {
		return fmt.Errorf("invalid cost timezone: %w", err)
	}

	d.RateLimiter = ratelimit.NewRateLimitService(ratelimit.Config{
		Window:      cfg.RateLimit.Window,
		MaxRequests: cfg.RateLimit.MaxRequests,
	}, d.Logger.Named("ratelimit"))

	d.Budget = budget.NewBudgetService(budget.Config{
		DailyLimit: cfg.Budget.DailyLimit,
		Location:   loc,
	}, d.Logger.Named("budget"))

	d.Breaker = breaker.NewCircuitBreaker(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		Timeout:          cfg.Breaker.Timeout,
	}, d.Logger.Named("breaker"))

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.stopWorkers = cancel
	if cfg.RateLimit.CleanupInterval > 0 {
		d.RateLimiter.StartCleanupWorker(workerCtx, cfg.RateLimit.CleanupInterval)
	}
	return nil
}

func (d *Dependencies) initRequestLog(cfg *config.Config) error {
	svc := requestlog.NewService(
		requestlog.NewZapSink(d.Logger),
		d.Logger.Named("requestlog"),
		requestlog.Config{
			BufferSize:  cfg.RequestLog.BufferSize,
			WorkerCount: cfg.RequestLog.Workers,
		},
	)
	if err := svc.Start(); err != nil {
		return err
	}
	d.RequestLog = svc
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs error

	if d.stopWorkers != nil {
		d.stopWorkers()
	}

	// Drain the request log
	if d.RequestLog != nil {
		timeout := defaultStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.RequestLog.Stop(timeout); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to stop request log: %w", err))
		} else {
			d.Logger.Info("request log drained")
		}
	}

	// Flush and stop the meter provider
	if d.Metrics != nil {
		if err := d.Metrics.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to shut down metrics: %w", err))
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if errs != nil {
		return fmt.Errorf("errors during shutdown: %w", errs)
	}

	return nil
}
