package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// sweepGrace keeps an expired window around briefly so a burst right
// after reset still sees its old entry rather than a fresh allocation.
const sweepGrace = time.Minute

type rateEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter per session id. Windows reset
// lazily on the first request after expiry; stale entries are removed
// by the periodic sweep.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	max     int
	window  time.Duration
	logger  *zap.Logger

	now func() time.Time // overridable in tests
}

// NewRateLimiter builds a limiter allowing max requests per window per
// session id.
func NewRateLimiter(max int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*rateEntry),
		max:     max,
		window:  window,
		logger:  logger.Named("ratelimit"),
		now:     time.Now,
	}
}

// RateStatus reports the outcome of a rate limit check.
type RateStatus struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Check counts one request against the session's window.
func (rl *RateLimiter) Check(sessionID string) RateStatus {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[sessionID]
	if !ok || now.After(entry.resetAt) {
		entry = &rateEntry{count: 1, resetAt: now.Add(rl.window)}
		rl.entries[sessionID] = entry
		return RateStatus{Allowed: true, Remaining: rl.max - 1, ResetAt: entry.resetAt}
	}

	if entry.count >= rl.max {
		rl.logger.Warn("rate limit exceeded",
			zap.String("session_id", sessionID),
			zap.Time("reset_at", entry.resetAt))
		return RateStatus{Allowed: false, Remaining: 0, ResetAt: entry.resetAt}
	}

	entry.count++
	return RateStatus{Allowed: true, Remaining: rl.max - entry.count, ResetAt: entry.resetAt}
}

// Sweep drops entries whose window expired more than the grace period
// ago and returns how many were removed.
func (rl *RateLimiter) Sweep() int {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for id, entry := range rl.entries {
		if now.After(entry.resetAt.Add(sweepGrace)) {
			delete(rl.entries, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (rl *RateLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Sweep()
			}
		}
	}()
}
