package orchestrator

import (
	"time"

	"github.com/upb/incident-ai-gateway/internal/observability"
	"github.com/upb/incident-ai-gateway/models"
	"github.com/upb/incident-ai-gateway/services/providers"
)

// ProviderSource supplies the configured providers
type ProviderSource interface {
	Enabled() []providers.Provider
	Status() []models.ProviderStatus
}

// RateLimiter gates requests per caller
type RateLimiter interface {
	Configured() bool
	IsAllowed(key string) bool
}

// CostTracker gates requests on the global daily budget
type CostTracker interface {
	IsWithinDailyLimit() bool
	TrackRequest(cost float64) error
}

// Breaker suppresses provider calls during sustained upstream failure
type Breaker interface {
	CanExecute() bool
	RecordSuccess()
	RecordFailure()
}

// FallbackGenerator produces degraded content without calling providers
type FallbackGenerator interface {
	Generate(req *models.AIRequest) *models.AIResponse
}

// RequestLogger receives one entry per logical request
type RequestLogger interface {
	Record(entry *models.RequestLogEntry) error
}

// Dependencies are the collaborators the Manager coordinates.
// RequestLog and Metrics are optional.
type Dependencies struct {
	Providers   ProviderSource
	RateLimiter RateLimiter
	CostTracker CostTracker
	Breaker     Breaker
	Fallback    FallbackGenerator
	RequestLog  RequestLogger
	Metrics     observability.Metrics
}

// Config holds orchestration settings
type Config struct {
	// FallbackModel is tried after the requested model fails everywhere
	FallbackModel string

	// RequestTimeout bounds a whole logical request; zero means no bound
	// beyond the caller's context and each provider's own timeout
	RequestTimeout time.Duration
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock replaces the time source used for durations
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// requestState tracks one logical request through the pipeline
type requestState struct {
	req         *models.AIRequest
	caller      string
	start       time.Time
	modelsTried []string
	attempts    int
}
