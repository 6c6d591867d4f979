// Package ratelimit provides per-key token buckets that are constructed and
// injected by the caller; there is no process-wide limiter state.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits or rejects one event for key. When it rejects, retryAfter
// tells the client how long to wait.
type Limiter interface {
	Allow(key string) (ok bool, retryAfter time.Duration)
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Keyed keeps one token bucket per key. Buckets idle for longer than the
// configured TTL are dropped by Run.
type Keyed struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

// Option configures Keyed.
type Option func(*Keyed)

// WithIdleTTL overrides how long an unused bucket is kept.
func WithIdleTTL(ttl time.Duration) Option {
	return func(k *Keyed) {
		if ttl > 0 {
			k.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(k *Keyed) {
		if fn != nil {
			k.now = fn
		}
	}
}

// NewKeyed allows events per interval with the given burst, per key.
func NewKeyed(events int, interval time.Duration, burst int, opts ...Option) *Keyed {
	if events <= 0 {
		events = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	if burst <= 0 {
		burst = events
	}
	k := &Keyed{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(interval / time.Duration(events)),
		burst:   burst,
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Allow implements Limiter.
func (k *Keyed) Allow(key string) (bool, time.Duration) {
	if key == "" {
		key = "unknown"
	}
	now := k.now()

	k.mu.Lock()
	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.seen = now
	k.mu.Unlock()

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// Sweep drops buckets idle for longer than the TTL.
func (k *Keyed) Sweep() {
	cutoff := k.now().Add(-k.ttl)
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, b := range k.buckets {
		if b.seen.Before(cutoff) {
			delete(k.buckets, key)
		}
	}
}

// Run sweeps idle buckets every interval until ctx is done.
func (k *Keyed) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Sweep()
		}
	}
}

// Unlimited admits everything.
type Unlimited struct{}

func (Unlimited) Allow(string) (bool, time.Duration) { return true, 0 }
