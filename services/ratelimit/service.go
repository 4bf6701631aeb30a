package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/upb/incident-ai-gateway/models"
	"go.uber.org/zap"
)

// Config holds the sliding window settings
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Option customizes a RateLimitService
type Option func(*RateLimitService)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *RateLimitService) {
		s.now = now
	}
}

// RateLimitService enforces a per-caller sliding window over request timestamps.
// State is process-local and lost on restart.
type RateLimitService struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	requests map[string][]time.Time
	now      func() time.Time
	logger   *zap.Logger
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(cfg Config, logger *zap.Logger, opts ...Option) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RateLimitService{
		window:   cfg.Window,
		limit:    cfg.MaxRequests,
		requests: make(map[string][]time.Time),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether the window and ceiling are usable.
// An unconfigured limiter denies every request.
func (s *RateLimitService) Configured() bool {
	return s.window > 0 && s.limit > 0
}

// IsAllowed records a request for key and reports whether it fits the window.
// Denied requests do not consume a slot.
func (s *RateLimitService) IsAllowed(key string) bool {
	if !s.Configured() {
		return false
	}
	key = normalizeKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	recent := prune(s.requests[key], now.Add(-s.window))
	if len(recent) >= s.limit {
		s.requests[key] = recent
		s.logger.Debug("rate limit exceeded",
			zap.String("caller", key),
			zap.Int("limit", s.limit),
			zap.Duration("window", s.window))
		return false
	}

	s.requests[key] = append(recent, now)
	return true
}

// RemainingRequests returns how many requests key may still make in the
// current window. It does not modify state.
func (s *RateLimitService) RemainingRequests(key string) int {
	if !s.Configured() {
		return 0
	}
	key = normalizeKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	count := 0
	for _, ts := range s.requests[key] {
		if ts.After(cutoff) {
			count++
		}
	}
	if remaining := s.limit - count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetAt returns when the oldest in-window request for key expires.
// The zero time means key has capacity now.
func (s *RateLimitService) ResetAt(key string) time.Time {
	key = normalizeKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	for _, ts := range s.requests[key] {
		if ts.After(cutoff) {
			return ts.Add(s.window)
		}
	}
	return time.Time{}
}

// CleanupIdle drops callers whose timestamps have all expired
func (s *RateLimitService) CleanupIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	removed := 0
	for key, ts := range s.requests {
		if len(prune(ts, cutoff)) == 0 {
			delete(s.requests, key)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker runs CleanupIdle every interval until ctx is cancelled
func (s *RateLimitService) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.CleanupIdle(); removed > 0 {
					s.logger.Debug("cleaned up idle rate limit entries", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// order, so the slice is sorted.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}

func normalizeKey(key string) string {
	if key == "" {
		return models.AnonymousCaller
	}
	return key
}
