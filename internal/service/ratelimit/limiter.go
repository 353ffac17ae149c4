package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter hands out one rate.Limiter per key. Every key shares the same
// burst and refill rate.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*entry
	burst int
	every rate.Limit
	idle  time.Duration
	now   func() time.Time
}

// New returns a limiter allowing bursts of capacity and refillPerSec
// sustained requests per key. Keys idle for longer than a full refill
// are dropped on the next sweep.
func New(capacity, refillPerSec float64) *Limiter {
	idle := time.Minute
	if refillPerSec > 0 {
		idle = max(idle, time.Duration(capacity/refillPerSec*float64(time.Second)))
	}
	return &Limiter{
		m:     make(map[string]*entry),
		burst: max(1, int(capacity)),
		every: rate.Limit(refillPerSec),
		idle:  idle,
		now:   time.Now,
	}
}

// Allow reports whether one more request for key fits in its budget.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		if len(l.m) >= 4096 {
			l.sweepLocked(now)
		}
		e = &entry{lim: rate.NewLimiter(l.every, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.seen) > l.idle {
			delete(l.m, k)
		}
	}
}
