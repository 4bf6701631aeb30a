package budget

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newService(limit float64, start time.Time) (*BudgetService, *fakeClock) {
	clock := &fakeClock{now: start}
	svc := NewBudgetService(Config{DailyLimit: limit, Location: time.UTC}, zap.NewNop(), WithClock(clock.Now))
	return svc, clock
}

func TestBudgetService_GetPeriodKey(t *testing.T) {
	svc, _ := newService(10, time.Now())

	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15", svc.getPeriodKey(now))

	bogota := time.FixedZone("COT", -5*3600)
	local := NewBudgetService(Config{DailyLimit: 10, Location: bogota}, nil)
	assert.Equal(t, "2024-01-15", local.getPeriodKey(time.Date(2024, 1, 16, 3, 0, 0, 0, time.UTC)))
}

func TestBudgetService_LimitReached(t *testing.T) {
	svc, _ := newService(10, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))

	require.True(t, svc.IsWithinDailyLimit())
	require.NoError(t, svc.TrackRequest(9.99))
	assert.True(t, svc.IsWithinDailyLimit())

	require.NoError(t, svc.TrackRequest(0.01))
	assert.False(t, svc.IsWithinDailyLimit(), "reaching the ceiling exactly denies further requests")
}

func TestBudgetService_DecimalAccumulation(t *testing.T) {
	svc, _ := newService(0.3, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))

	// 0.1 + 0.2 must equal the 0.3 ceiling exactly
	require.NoError(t, svc.TrackRequest(0.1))
	require.NoError(t, svc.TrackRequest(0.2))

	assert.False(t, svc.IsWithinDailyLimit())
	summary := svc.Snapshot()
	assert.Equal(t, 0.3, summary.Spend)
	assert.Equal(t, 0.0, summary.Remaining)
	assert.True(t, summary.Exceeded)
}

func TestBudgetService_DailyReset(t *testing.T) {
	svc, clock := newService(10, time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC))

	require.NoError(t, svc.TrackRequest(10))
	require.False(t, svc.IsWithinDailyLimit())

	clock.Set(time.Date(2024, 1, 16, 0, 0, 1, 0, time.UTC))

	assert.True(t, svc.IsWithinDailyLimit())
	summary := svc.Snapshot()
	assert.Equal(t, "2024-01-16", summary.Day)
	assert.Equal(t, 0.0, summary.Spend)
	assert.Equal(t, 10.0, summary.Remaining)
}

func TestBudgetService_TrackAfterRolloverStartsFresh(t *testing.T) {
	svc, clock := newService(10, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.TrackRequest(6))
	clock.Set(time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC))
	require.NoError(t, svc.TrackRequest(5))

	assert.Equal(t, 5.0, svc.Snapshot().Spend)
	assert.True(t, svc.IsWithinDailyLimit())
}

func TestBudgetService_NegativeCost(t *testing.T) {
	svc, _ := newService(10, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	err := svc.TrackRequest(-1)
	assert.ErrorIs(t, err, ErrNegativeCost)
	assert.Equal(t, 0.0, svc.Snapshot().Spend)
}

func TestBudgetService_ZeroCost(t *testing.T) {
	svc, _ := newService(10, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.TrackRequest(0))
	assert.Equal(t, 0.0, svc.Snapshot().Spend)
}

func TestBudgetService_ConcurrentTracking(t *testing.T) {
	svc, _ := newService(1000, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.TrackRequest(0.25)
		}()
	}
	wg.Wait()

	assert.Equal(t, 25.0, svc.Snapshot().Spend)
}
