package handlers

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
)

// rateLimiter throttles credential endpoints per client address.
type rateLimiter interface {
	Allow(key string) bool
}

type windowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]window
}

type window struct {
	count int
	reset time.Time
}

// newWindowLimiter returns nil when limit or period is not positive, which disables throttling.
func newWindowLimiter(limit int, period time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || period <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowLimiter{
		limit:   limit,
		window:  period,
		clock:   clock,
		buckets: make(map[string]window),
	}
}

func (l *windowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.reset) {
		l.buckets[key] = window{count: 1, reset: now.Add(l.window)}
		l.pruneLocked(now)
		return true
	}
	if bucket.count >= l.limit {
		return false
	}
	bucket.count++
	l.buckets[key] = bucket
	return true
}

func (l *windowLimiter) pruneLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if now.After(bucket.reset) {
			delete(l.buckets, key)
		}
	}
}

// throttle rejects requests over the limit with 429. A nil limiter passes everything through.
func throttle(limiter rateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(scope + ":" + clientAddress(r)) {
				w.Header().Set("Retry-After", "60")
				httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many attempts, try again later", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddress relies on middleware.RealIP having rewritten RemoteAddr.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
