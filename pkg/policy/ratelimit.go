package policy

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/types"
)

const (
	// cleanupInterval bounds how often the limiter sweeps stale endpoint
	// entries. The sweep is lazy: it piggybacks on Allow calls.
	cleanupInterval = 5 * time.Minute
)

// RateLimiter caps probe attempts per endpoint within a sliding window.
// Endpoints are identified by the target's normalized key, so TCP and HTTP
// probes of the same host:port share a budget per scheme. Safe for
// concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration

	lastCleanup atomic.Int64

	// now is swapped in tests to drive the clock.
	now func() time.Time
}

// NewRateLimiter builds a limiter allowing at most limit attempts per
// endpoint within window. A limit of 1 is enforced as the floor.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	r := &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	r.lastCleanup.Store(time.Now().UnixNano())
	return r
}

// Allow records one attempt against the target's endpoint and reports
// whether it is within the rate limit. Rejected attempts are not recorded,
// so the budget frees up as soon as the window slides past the earliest
// allowed attempt.
func (r *RateLimiter) Allow(t target.Target) error {
	key := t.Key()
	now := r.now()

	r.maybeCleanup(now)

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	recent := r.attempts[key][:0]
	for _, ts := range r.attempts[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= r.limit {
		r.attempts[key] = recent
		return types.NewTargetError(types.ErrCodeRateLimited, t.String(),
			"rate limit exceeded: %d attempts within %s", r.limit, r.window)
	}

	r.attempts[key] = append(recent, now)
	return nil
}

// maybeCleanup drops endpoints with no attempts inside the window. The
// atomic stamp keeps the full-map sweep to at most once per cleanupInterval
// without holding the lock on the common path.
func (r *RateLimiter) maybeCleanup(now time.Time) {
	last := r.lastCleanup.Load()
	if now.UnixNano()-last < int64(cleanupInterval) {
		return
	}
	if !r.lastCleanup.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	for key, stamps := range r.attempts {
		live := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(r.attempts, key)
		}
	}
}

// Tracked returns the number of endpoints currently holding attempt history.
func (r *RateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}
