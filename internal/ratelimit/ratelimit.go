// Package ratelimit is C9: fixed-window rate limiting for the three
// upload policies (UploadReserve, UploadContent, UploadCommit). Keys are
// xxhash-folded to a uint64 so each window map entry has a fixed-size key
// regardless of the key string's length (tenant/user/IP strings); the map
// still holds one entry per distinct key until Sweep evicts it, matching the teacher's use of
// cespare/xxhash for cheap, well-distributed hashing.
package ratelimit

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/config"
)

type window struct {
	count       int
	windowStart time.Time
}

// Limiter enforces one fixed-window policy, keyed by an arbitrary string
// (typically workspaceID+userID or an IP). Use NewLimiter per named policy.
type Limiter struct {
	mu      sync.Mutex
	windows map[uint64]*window
	limit   int
	period  time.Duration
}

func NewLimiter(policyName string) *Limiter {
	limit, period := config.RateLimitPolicy(policyName)
	return &Limiter{windows: map[uint64]*window{}, limit: limit, period: period}
}

// Allow checks and, if permitted, consumes one unit from key's current
// fixed window. Once the window's permit_limit is exhausted, every further
// call within that window is rejected until the window rolls over.
func (l *Limiter) Allow(key string) error {
	h := xxhash.Sum64String(key)
	now := time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[h]
	if !ok || now.Sub(w.windowStart) >= l.period {
		w = &window{count: 0, windowStart: now}
		l.windows[h] = w
	}
	if w.count >= l.limit {
		retryAfter := int(l.period.Seconds() - now.Sub(w.windowStart).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return apierrors.NewRateLimited(retryAfter)
	}
	w.count++
	return nil
}

// Sweep evicts windows that rolled over at least one full period ago,
// bounding memory for keys that stop appearing (e.g. a revoked PAT).
func (l *Limiter) Sweep() {
	cutoff := time.Now().UTC().Add(-2 * l.period)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.windows {
		if w.windowStart.Before(cutoff) {
			delete(l.windows, k)
		}
	}
}
