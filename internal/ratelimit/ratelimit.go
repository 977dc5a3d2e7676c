// Package ratelimit implements the gateway's per-key token-bucket limiter:
// one bucket per API key or client IP, refilled over a one-minute window.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per key, lazily created on first use and
// never evicted (the key space is bounded by distinct API keys / client
// IPs seen, which is acceptable for a gateway process lifetime).
type Limiter struct {
	perMinute int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New builds a Limiter allowing perMinute requests per key per minute,
// with burst equal to perMinute so a key can spend its whole window's
// budget immediately.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Limiter{perMinute: perMinute, buckets: make(map[string]*rate.Limiter)}
}

func (l *Limiter) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		every := time.Minute / time.Duration(l.perMinute)
		b = rate.NewLimiter(rate.Every(every), l.perMinute)
		l.buckets[key] = b
	}
	return b
}

// Allow reports whether key may proceed now, and if not, how many seconds
// the caller should wait before retrying. The wait is clamped to [1, 60].
func (l *Limiter) Allow(key string) (allowed bool, retryAfterSeconds int) {
	b := l.bucketFor(key)
	res := b.ReserveN(time.Now(), 1)
	if !res.OK() {
		return false, l.perMinute
	}
	delay := res.Delay()
	if delay <= 0 {
		return true, 0
	}
	res.Cancel()
	seconds := int(delay / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if seconds > 60 {
		seconds = 60
	}
	return false, seconds
}
