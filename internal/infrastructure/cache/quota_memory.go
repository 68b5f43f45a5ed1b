// Package cache provides the daily-quota stores consumed by the marketplace
// rate limiters: an in-process store for single-instance deployments and a
// Redis-backed store for fleets sharing one provider account.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/commerceops/backend/internal/domain/integration"
)

// quotaWindowLength is the provider's rolling quota window.
const quotaWindowLength = 24 * time.Hour

type quotaWindow struct {
	remaining int64
	resetAt   time.Time
}

// InMemoryQuotaStore tracks per-module daily quotas in process memory.
// The 24h window starts at a module's first acquisition and rolls over
// lazily on the next acquisition after the boundary.
type InMemoryQuotaStore struct {
	mu      sync.Mutex
	windows map[string]*quotaWindow
	now     func() time.Time
}

// NewInMemoryQuotaStore creates an empty store.
func NewInMemoryQuotaStore() *InMemoryQuotaStore {
	return &InMemoryQuotaStore{
		windows: make(map[string]*quotaWindow),
		now:     time.Now,
	}
}

// NewInMemoryQuotaStoreWithClock creates a store with an injected clock.
// Intended for tests.
func NewInMemoryQuotaStoreWithClock(now func() time.Time) *InMemoryQuotaStore {
	return &InMemoryQuotaStore{
		windows: make(map[string]*quotaWindow),
		now:     now,
	}
}

// Acquire implements integration.QuotaStore.
func (s *InMemoryQuotaStore) Acquire(_ context.Context, moduleID string, limit int64, cost int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[moduleID]
	if !ok || !now.Before(w.resetAt) {
		w = &quotaWindow{remaining: limit, resetAt: now.Add(quotaWindowLength)}
		s.windows[moduleID] = w
	}

	if w.remaining < cost {
		return false, nil
	}
	w.remaining -= cost
	return true, nil
}

// Remaining returns the unconsumed quota for a module, and the reset time.
// A module with no window yet reports the full limit.
func (s *InMemoryQuotaStore) Remaining(moduleID string, limit int64) (int64, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[moduleID]
	if !ok || !s.now().Before(w.resetAt) {
		return limit, time.Time{}
	}
	return w.remaining, w.resetAt
}

var _ integration.QuotaStore = (*InMemoryQuotaStore)(nil)
