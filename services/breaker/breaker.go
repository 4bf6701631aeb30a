package breaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the state of a circuit breaker
type State string

const (
	StateClosed   State = "closed"    // normal operation
	StateOpen     State = "open"      // provider calls suppressed
	StateHalfOpen State = "half-open" // trial calls allowed
)

const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 3
	DefaultTimeout          = 60 * time.Second
)

// Config holds circuit breaker thresholds. Zero values take the defaults.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	Timeout          time.Duration // cooldown before a half-open trial
}

// Snapshot is a point-in-time view of the breaker
type Snapshot struct {
	State            State     `json:"state"`
	FailureCount     int       `json:"failure_count"`
	SuccessCount     int       `json:"success_count"`
	FailureThreshold int       `json:"failure_threshold"`
	SuccessThreshold int       `json:"success_threshold"`
	OpenedAt         time.Time `json:"opened_at,omitempty"`
}

// Option customizes a CircuitBreaker
type Option func(*CircuitBreaker)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// CircuitBreaker suppresses provider calls after repeated upstream failures.
// One breaker guards every provider.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	openedAt         time.Time
	now              func() time.Time
	logger           *zap.Logger
}

// NewCircuitBreaker creates a new circuit breaker in the closed state
func NewCircuitBreaker(cfg Config, logger *zap.Logger, opts ...Option) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultSuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		now:              time.Now,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// CanExecute reports whether provider calls may proceed. An open breaker
// whose cooldown has elapsed moves to half-open here.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			return false
		}
		cb.transition(StateHalfOpen)
		cb.successCount = 0
		return true
	default:
		return true
	}
}

// RecordSuccess records one successful provider call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0

	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.transition(StateClosed)
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

// RecordFailure records one failed provider call
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.open()
		}

	case StateHalfOpen:
		cb.open()
	}
}

// State returns the current state without applying the cooldown transition
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns breaker statistics
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Snapshot{
		State:            cb.state,
		FailureCount:     cb.failureCount,
		SuccessCount:     cb.successCount,
		FailureThreshold: cb.failureThreshold,
		SuccessThreshold: cb.successThreshold,
		OpenedAt:         cb.openedAt,
	}
}

// Reset forces the breaker closed
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transition(StateClosed)
	cb.failureCount = 0
	cb.successCount = 0
	cb.openedAt = time.Time{}
}

// open moves to the open state. Caller holds mu.
func (cb *CircuitBreaker) open() {
	cb.transition(StateOpen)
	cb.openedAt = cb.now()
	cb.failureCount = 0
	cb.successCount = 0
}

// transition changes state and logs it. Caller holds mu.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to

	fields := []zap.Field{
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("failure_threshold", cb.failureThreshold),
		zap.Int("success_threshold", cb.successThreshold),
	}
	if to == StateOpen {
		cb.logger.Warn("circuit breaker opened", append(fields, zap.Duration("cooldown", cb.timeout))...)
		return
	}
	cb.logger.Info("circuit breaker state changed", fields...)
}
