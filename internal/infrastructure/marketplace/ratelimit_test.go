package marketplace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/cache"
)

// fakeClock is a manually advanced wall clock shared by a limiter and its
// sleeper, so refill waits complete without real sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Sleep advances the clock instead of suspending, honoring cancellation.
func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func newTestLimiter(policy integration.RateLimitPolicy, opts ...RateLimiterOption) (*RateLimiter, *fakeClock) {
	clock := newFakeClock()
	opts = append([]RateLimiterOption{WithClock(clock.Now), WithSleeper(clock.Sleep)}, opts...)
	return NewRateLimiter("orders", policy, opts...), clock
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	l, _ := newTestLimiter(integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 5})
	ctx := context.Background()

	// The full burst is admitted immediately
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(ctx, 1, 0), "burst acquisition %d", i+1)
	}

	// 6th call at t=0: the deficit refills in 1s
	err := l.Acquire(ctx, 1, 500*time.Millisecond)
	assert.ErrorIs(t, err, integration.ErrAdmissionTimeout)

	err = l.Acquire(ctx, 1, time.Second)
	assert.NoError(t, err, "timeout >= refill wait should admit after waiting")
}

func TestRateLimiter_BucketBound(t *testing.T) {
	l, clock := newTestLimiter(integration.RateLimitPolicy{RestoreRatePerSecond: 10, BurstCapacity: 3})

	// Long idle must not overfill the bucket
	clock.Advance(time.Hour)
	snap := l.Snapshot()
	assert.Equal(t, 3.0, snap.Tokens)
	assert.Equal(t, 3.0, snap.Capacity)

	// Draining never drives tokens negative
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx, 1, 0))
	}
	assert.ErrorIs(t, l.Acquire(ctx, 1, 0), integration.ErrAdmissionTimeout)
	assert.GreaterOrEqual(t, l.Snapshot().Tokens, 0.0)
}

func TestRateLimiter_RefillMonotonicity(t *testing.T) {
	l, clock := newTestLimiter(integration.RateLimitPolicy{RestoreRatePerSecond: 2, BurstCapacity: 20})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, l.Acquire(ctx, 1, 0))
	}
	assert.InDelta(t, 0.0, l.Snapshot().Tokens, 1e-9)

	// 3 seconds at 2 tokens/s restores exactly 6 tokens
	clock.Advance(3 * time.Second)
	assert.InDelta(t, 6.0, l.Snapshot().Tokens, 1e-9)
}

func TestRateLimiter_DailyQuota(t *testing.T) {
	clock := newFakeClock()
	store := cache.NewInMemoryQuotaStoreWithClock(clock.Now)
	l := NewRateLimiter("sales",
		integration.RateLimitPolicy{RestoreRatePerSecond: 100, BurstCapacity: 100, MaximumRequestQuota: 2},
		WithClock(clock.Now), WithSleeper(clock.Sleep), WithQuotaStore(store),
	)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, 1, 0))
	require.NoError(t, l.Acquire(ctx, 1, 0))

	// Tokens are plentiful, but the quota is spent
	err := l.Acquire(ctx, 1, 0)
	assert.ErrorIs(t, err, integration.ErrQuotaExhausted)

	// Denied admissions refund their tokens
	assert.InDelta(t, 98.0, l.Snapshot().Tokens, 1e-9)

	// The quota window resets 24h after first use
	clock.Advance(24 * time.Hour)
	assert.NoError(t, l.Acquire(ctx, 1, 0))
}

func TestRateLimiter_CancellationDuringWait(t *testing.T) {
	l, _ := newTestLimiter(integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 1})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Acquire(ctx, 1, 0))

	cancel()
	err := l.Acquire(ctx, 1, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_IndependentBuckets(t *testing.T) {
	a, _ := newTestLimiter(integration.RateLimitPolicy{RestoreRatePerSecond: 0.001, BurstCapacity: 1})
	b, _ := newTestLimiter(integration.RateLimitPolicy{RestoreRatePerSecond: 0.001, BurstCapacity: 1})
	ctx := context.Background()

	require.NoError(t, a.Acquire(ctx, 1, 0))
	assert.ErrorIs(t, a.Acquire(ctx, 1, 0), integration.ErrAdmissionTimeout)

	// Saturating one module's bucket does not block another's
	assert.NoError(t, b.Acquire(ctx, 1, 0))
}

func TestRateLimiter_ConcurrentAcquire(t *testing.T) {
	// Real clock: the burst admits exactly capacity callers instantly
	l := NewRateLimiter("orders", integration.RateLimitPolicy{RestoreRatePerSecond: 0.001, BurstCapacity: 10})
	ctx := context.Background()

	var granted, denied int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Acquire(ctx, 1, 0)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				granted++
			} else {
				denied++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), granted)
	assert.Equal(t, int64(15), denied)
	assert.GreaterOrEqual(t, l.Snapshot().Tokens, 0.0)
}
