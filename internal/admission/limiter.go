// Package admission gates inbound requests with a sliding-window rate
// limiter and an internal credential check before any pipeline runs.
package admission

import (
	"context"
	"sync"
	"time"

	"github.com/solshare/contentiq/internal/domain"
	"github.com/solshare/contentiq/internal/metrics"
)

// Rate is a per-endpoint limit over a trailing window.
type Rate struct {
	Limit  int
	Window time.Duration
}

type clientKey struct {
	endpoint string
	client   string
}

// Limiter is a sliding-window rate limiter keyed by (endpoint, client).
// The window slides continuously with now, so there are no boundary bursts
// at fixed-interval edges. Shared across all requests; every check is a
// read-then-write on the per-key timestamp list under one mutex (goroutines
// preempt, so the lock is required).
type Limiter struct {
	mu    sync.Mutex
	rates map[string]Rate
	seen  map[clientKey][]time.Time
	now   func() time.Time
}

// NewLimiter creates a limiter from the per-endpoint rate table.
// Endpoints absent from the table are always admitted.
func NewLimiter(rates map[string]Rate) *Limiter {
	return &Limiter{
		rates: rates,
		seen:  make(map[clientKey][]time.Time),
		now:   time.Now,
	}
}

// Check admits or rejects a request. On admission the current timestamp is
// recorded; on rejection nothing is recorded and domain.ErrRateLimited is
// returned.
func (l *Limiter) Check(endpoint, client string) error {
	rate, ok := l.rates[endpoint]
	if !ok {
		return nil
	}

	now := l.now()
	cutoff := now.Add(-rate.Window)
	key := clientKey{endpoint: endpoint, client: client}

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.seen[key], cutoff)

	if len(kept) >= rate.Limit {
		l.seen[key] = kept
		metrics.RateLimitRejectionsTotal.WithLabelValues(endpoint).Inc()
		return domain.ErrRateLimited
	}

	l.seen[key] = append(kept, now)
	return nil
}

// prune drops timestamps at or before cutoff, keeping order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

// Sweep removes (endpoint, client) entries whose whole window has expired.
// The set of distinct clients otherwise grows without bound.
func (l *Limiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, stamps := range l.seen {
		rate, ok := l.rates[key.endpoint]
		if !ok {
			delete(l.seen, key)
			continue
		}
		if len(prune(stamps, now.Add(-rate.Window))) == 0 {
			delete(l.seen, key)
		}
	}
}

// RunSweeper sweeps stale clients at the given interval until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
