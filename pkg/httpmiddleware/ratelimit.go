package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sets a per-client token bucket: Burst requests at once,
// refilled at Burst per Per.
type RateLimitConfig struct {
	Burst int
	Per   time.Duration
	// Idle is how long an untouched client bucket is kept. Defaults to 3*Per.
	Idle time.Duration
	// Key identifies the client. Defaults to ClientIP.
	Key func(r *http.Request) string
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiter tracks one token bucket per client key.
type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration
}

func newLimiter(cfg RateLimitConfig) *limiter {
	idle := cfg.Idle
	if idle <= 0 {
		idle = 3 * cfg.Per
	}
	return &limiter{
		buckets: map[string]*bucket{},
		every:   rate.Every(cfg.Per / time.Duration(cfg.Burst)),
		burst:   cfg.Burst,
		idle:    idle,
	}
}

func (l *limiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// evict drops buckets idle since before now-idle.
func (l *limiter) evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.idle {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// RateLimit rejects clients that exceed cfg with 429. Idle client buckets are
// evicted in the background until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Burst <= 0 || cfg.Per <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	key := cfg.Key
	if key == nil {
		key = ClientIP
	}
	l := newLimiter(cfg)

	go func() {
		t := time.NewTicker(l.idle)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.evict(now)
			}
		}
	}()

	retryAfter := strconv.Itoa(max(1, int((cfg.Per / time.Duration(cfg.Burst)).Seconds())))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(key(r), time.Now()) {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP or the peer
// address, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
