package marketplace

import (
	"context"
	"sync"
	"time"

	"github.com/commerceops/backend/internal/domain/integration"
)

// RateLimiter is a token bucket gating request admission for one module.
// Tokens refill continuously at the policy's restore rate up to the burst
// capacity. When the policy carries a daily quota, admission additionally
// consumes from a QuotaStore; once the quota is exhausted, Acquire fails
// regardless of token availability until the 24h window resets.
//
// The bucket's counters are the only shared mutable state; concurrent
// Acquire calls against the same bucket serialize through the mutex, while
// buckets of different modules never block each other. Admission order under
// saturation is token-availability order, not FIFO.
type RateLimiter struct {
	moduleID   string
	capacity   float64
	refillRate float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	quotaLimit int64
	quota      integration.QuotaStore

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// RateLimiterOption customizes a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithQuotaStore attaches a daily-quota store. Only effective when the
// policy's MaximumRequestQuota is positive.
func WithQuotaStore(store integration.QuotaStore) RateLimiterOption {
	return func(l *RateLimiter) {
		l.quota = store
	}
}

// WithClock replaces the wall clock. Intended for tests.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// WithSleeper replaces the suspension primitive. Intended for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) RateLimiterOption {
	return func(l *RateLimiter) {
		l.sleep = sleep
	}
}

// NewRateLimiter creates a full bucket for the given module policy.
func NewRateLimiter(moduleID string, policy integration.RateLimitPolicy, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		moduleID:   moduleID,
		capacity:   float64(policy.BurstCapacity),
		refillRate: policy.RestoreRatePerSecond,
		tokens:     float64(policy.BurstCapacity),
		quotaLimit: policy.MaximumRequestQuota,
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastRefill = l.now()
	return l
}

// Acquire admits the caller once cost tokens are available, waiting at most
// timeout for the bucket to refill. It returns ErrAdmissionTimeout when the
// wait would exceed timeout, ErrQuotaExhausted when the daily quota is spent,
// and the context error when the caller's deadline elapses while suspended.
func (l *RateLimiter) Acquire(ctx context.Context, cost float64, timeout time.Duration) error {
	// One refill wait, then a single re-check: a caller that loses the race
	// after waiting reports timeout rather than queueing unboundedly.
	for attempt := 0; attempt < 2; attempt++ {
		wait, granted := l.take(cost)
		if granted {
			if err := l.consumeQuota(ctx, cost); err != nil {
				l.refund(cost)
				return err
			}
			return nil
		}
		if attempt > 0 || wait > timeout {
			return integration.ErrAdmissionTimeout
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return integration.ErrAdmissionTimeout
}

// take refills the bucket and consumes cost tokens if available. When not
// available it returns the wait until the deficit refills.
func (l *RateLimiter) take(cost float64) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= cost {
		l.tokens -= cost
		return 0, true
	}
	wait := time.Duration((cost - l.tokens) / l.refillRate * float64(time.Second))
	return wait, false
}

// refill advances the bucket to now. Caller holds the mutex.
func (l *RateLimiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * l.refillRate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}
	l.lastRefill = now
}

// refund returns tokens taken for an admission that was subsequently denied
// by the quota store.
func (l *RateLimiter) refund(cost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens += cost
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
}

func (l *RateLimiter) consumeQuota(ctx context.Context, cost float64) error {
	if l.quota == nil || l.quotaLimit <= 0 {
		return nil
	}
	granted, err := l.quota.Acquire(ctx, l.moduleID, l.quotaLimit, int64(cost))
	if err != nil {
		return err
	}
	if !granted {
		return integration.ErrQuotaExhausted
	}
	return nil
}

// BucketSnapshot is a point-in-time view of a bucket, for the ops surface.
type BucketSnapshot struct {
	ModuleID             string  `json:"moduleId"`
	Capacity             float64 `json:"capacity"`
	Tokens               float64 `json:"tokens"`
	RestoreRatePerSecond float64 `json:"restoreRatePerSecond"`
	MaximumRequestQuota  int64   `json:"maximumRequestQuota,omitempty"`
}

// Snapshot refills the bucket and returns its current state.
func (l *RateLimiter) Snapshot() BucketSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return BucketSnapshot{
		ModuleID:             l.moduleID,
		Capacity:             l.capacity,
		Tokens:               l.tokens,
		RestoreRatePerSecond: l.refillRate,
		MaximumRequestQuota:  l.quotaLimit,
	}
}

// sleepContext suspends the caller cooperatively, waking early when the
// context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
