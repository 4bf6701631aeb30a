package budget

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNegativeCost is returned when TrackRequest receives a negative amount
var ErrNegativeCost = errors.New("cost must be non-negative")

// Config holds the daily budget settings
type Config struct {
	// DailyLimit is the spend ceiling in USD for one calendar day
	DailyLimit float64

	// Location defines the calendar day boundary; defaults to time.Local
	Location *time.Location
}

// Summary is a snapshot of the current day's spend
type Summary struct {
	Day       string  `json:"day"`
	Spend     float64 `json:"spend"`
	Limit     float64 `json:"limit"`
	Remaining float64 `json:"remaining"`
	Exceeded  bool    `json:"exceeded"`
}

// Option customizes a BudgetService
type Option func(*BudgetService)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *BudgetService) {
		s.now = now
	}
}

// BudgetService tracks global spend against a daily ceiling.
// The running total resets when the calendar date changes.
type BudgetService struct {
	mu       sync.Mutex
	limit    decimal.Decimal
	location *time.Location
	day      string
	spend    decimal.Decimal
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudgetService creates a new BudgetService instance
func NewBudgetService(cfg Config, logger *zap.Logger, opts ...Option) *BudgetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &BudgetService{
		limit:    decimal.NewFromFloat(cfg.DailyLimit),
		location: cfg.Location,
		spend:    decimal.Zero,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.day = s.getPeriodKey(s.now())
	return s
}

// IsWithinDailyLimit reports whether today's spend is still below the ceiling
func (s *BudgetService) IsWithinDailyLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()
	return s.spend.LessThan(s.limit)
}

// TrackRequest adds cost to today's running total
func (s *BudgetService) TrackRequest(cost float64) error {
	if cost < 0 {
		return ErrNegativeCost
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()
	before := s.spend
	s.spend = s.spend.Add(decimal.NewFromFloat(cost))

	if before.LessThan(s.limit) && !s.spend.LessThan(s.limit) {
		s.logger.Warn("daily cost limit reached",
			zap.String("day", s.day),
			zap.String("spend", s.spend.StringFixed(6)),
			zap.String("limit", s.limit.StringFixed(2)))
	}
	return nil
}

// Snapshot returns the current day's spend figures
func (s *BudgetService) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()
	remaining := s.limit.Sub(s.spend)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Summary{
		Day:       s.day,
		Spend:     s.spend.InexactFloat64(),
		Limit:     s.limit.InexactFloat64(),
		Remaining: remaining.InexactFloat64(),
		Exceeded:  !s.spend.LessThan(s.limit),
	}
}

// rollover resets the total when the date has changed. Caller holds mu.
func (s *BudgetService) rollover() {
	today := s.getPeriodKey(s.now())
	if today == s.day {
		return
	}
	s.logger.Info("daily cost total reset",
		zap.String("previous_day", s.day),
		zap.String("previous_spend", s.spend.StringFixed(6)),
		zap.String("day", today))
	s.day = today
	s.spend = decimal.Zero
}

// getPeriodKey returns the calendar day key for t
func (s *BudgetService) getPeriodKey(t time.Time) string {
	return t.In(s.location).Format("2006-01-02")
}
