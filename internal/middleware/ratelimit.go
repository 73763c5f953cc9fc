package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*keyLimiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Allow reports whether a request for key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastSeen = now
	l.evictLocked(now)
	return kl.limiter.AllowN(now, 1)
}

// evictLocked drops buckets unused for longer than the idle window.
func (l *RateLimiter) evictLocked(now time.Time) {
	for k, kl := range l.limiters {
		if now.Sub(kl.lastSeen) > l.idle {
			delete(l.limiters, k)
		}
	}
}

// RateLimit rejects requests over the limit with 429. keyFn picks the bucket;
// requests with an empty key are not limited.
func RateLimit(l *RateLimiter, keyFn func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := keyFn(r); key != "" && !l.Allow(key) {
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
