package services

import (
	"math/rand"
	"sync"
	"time"
)

// RateLimitDecision is the outcome of a single Check.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter bounds the frequency of referral-code lookups per identifier.
// Injectable so a multi-instance deployment can swap in a shared store.
type RateLimiter interface {
	Check(identifier string) RateLimitDecision
}

type rateWindow struct {
	count       int
	windowStart time.Time
}

// MemoryRateLimiter is a fixed-window in-memory limiter. Counters are the only
// in-process shared mutable state in this service; all updates happen under
// the mutex. Stale windows are swept probabilistically (~1% of checks) rather
// than by a ticker — keeping an expired entry briefly is harmless.
type MemoryRateLimiter struct {
	mu     sync.Mutex
	state  map[string]*rateWindow
	limit  int
	window time.Duration
}

func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		state:  make(map[string]*rateWindow),
		limit:  limit,
		window: window,
	}
}

func (l *MemoryRateLimiter) Check(identifier string) RateLimitDecision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if rand.Intn(100) == 0 {
		l.sweepLocked(now)
	}

	w, ok := l.state[identifier]
	if !ok || now.Sub(w.windowStart) >= l.window {
		w = &rateWindow{windowStart: now}
		l.state[identifier] = w
	}

	resetAt := w.windowStart.Add(l.window)
	if w.count >= l.limit {
		return RateLimitDecision{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	w.count++
	return RateLimitDecision{
		Allowed:   true,
		Remaining: l.limit - w.count,
		ResetAt:   resetAt,
	}
}

// sweepLocked drops windows that ended before now. Caller holds the mutex.
func (l *MemoryRateLimiter) sweepLocked(now time.Time) {
	for id, w := range l.state {
		if now.Sub(w.windowStart) >= l.window {
			delete(l.state, id)
		}
	}
}
