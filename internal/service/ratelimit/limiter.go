package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key. Buckets idle longer than the
// idle window are dropped on the next sweep.
type Limiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	m         map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

// New creates a Limiter admitting rps requests per second per key, with the given burst.
func New(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	lim := rate.Limit(rps)
	if rps <= 0 {
		lim = rate.Inf
	}
	return &Limiter{
		rps:   lim,
		burst: burst,
		idle:  10 * time.Minute,
		m:     make(map[string]*bucket),
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	b, ok := l.m[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = b
	}
	b.seen = now
	l.sweepLocked(now)
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for k, b := range l.m {
		if now.Sub(b.seen) > l.idle {
			delete(l.m, k)
		}
	}
}
