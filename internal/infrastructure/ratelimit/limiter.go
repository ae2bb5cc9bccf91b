package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/config"
	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
)

// SlidingWindow caps outbound requests per account: at most max admissions
// inside any rolling window. Each account has a time-ordered queue of its
// admitted request timestamps; all queues live in one map behind one lock.
// The critical sections are short; the only long suspension happens outside
// the lock.
type SlidingWindow struct {
	mu     sync.Mutex
	queues map[uint][]time.Time

	max    int
	window time.Duration

	logger  zerolog.Logger
	metrics *metrics.Metrics

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ domain.RateLimiter = (*SlidingWindow)(nil)

// NewSlidingWindow creates a rate limiter from config
func NewSlidingWindow(cfg *config.RateLimitConfig, logger zerolog.Logger, m *metrics.Metrics) *SlidingWindow {
	return &SlidingWindow{
		queues:  make(map[uint][]time.Time),
		max:     cfg.MaxRequests,
		window:  cfg.Window,
		logger:  logger.With().Str("component", "rate_limiter").Logger(),
		metrics: m,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Acquire admits the account's next request, suspending the caller when the
// window budget is exhausted. After one computed wait the caller is admitted
// unconditionally: concurrent waiters on the same account may briefly exceed
// the nominal rate instead of re-queueing forever. The tracked queue is
// trimmed to the budget on admit so it stays bounded regardless.
func (l *SlidingWindow) Acquire(ctx context.Context, accountID uint) error {
	l.mu.Lock()
	now := l.now()
	queue := l.purgeLocked(accountID, now)

	if len(queue) < l.max {
		l.queues[accountID] = append(queue, now)
		l.mu.Unlock()
		return nil
	}

	wait := queue[0].Add(l.window).Sub(now)
	l.mu.Unlock()

	l.metrics.RateLimitWaits.Inc()
	l.logger.Debug().
		Uint("account_id", accountID).
		Dur("wait", wait).
		Msg("Rate limit reached, suspending caller")

	if err := l.sleep(ctx, wait); err != nil {
		return err
	}
	l.metrics.RateLimitWaitTime.Observe(wait.Seconds())

	l.mu.Lock()
	now = l.now()
	queue = append(l.purgeLocked(accountID, now), now)
	if len(queue) > l.max {
		queue = queue[len(queue)-l.max:]
	}
	l.queues[accountID] = queue
	l.mu.Unlock()

	return nil
}

// Remaining reports how many requests the account may still make in the
// current window. Never blocks.
func (l *SlidingWindow) Remaining(accountID uint) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	queue := l.purgeLocked(accountID, l.now())
	l.queues[accountID] = queue

	remaining := l.max - len(queue)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Reset clears the account's request history
func (l *SlidingWindow) Reset(accountID uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.queues, accountID)
}

// purgeLocked drops timestamps that left the window. Caller holds the lock.
func (l *SlidingWindow) purgeLocked(accountID uint, now time.Time) []time.Time {
	queue := l.queues[accountID]
	cutoff := now.Add(-l.window)

	idx := 0
	for idx < len(queue) && !queue[idx].After(cutoff) {
		idx++
	}
	return queue[idx:]
}

// sleepContext suspends for d, honoring cancellation
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
