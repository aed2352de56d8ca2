package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/s1natex/task-tracker-GO/internal/identity"
)

type rateErr struct {
	Error string `json:"error"`
}

const defaultIdleTTL = 10 * time.Minute

// Limiter hands out one token bucket per caller: the user id when the
// request is authenticated, the client IP otherwise.
//
// Buckets not touched for the idle TTL are dropped during a periodic sweep.
// The TTL is never shorter than the time a bucket needs to refill, so a
// dropped bucket was full and recreating it changes nothing.
type Limiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type LimiterOption func(*Limiter)

// WithIdleTTL sets how long an unused bucket is kept.
func WithIdleTTL(d time.Duration) LimiterOption {
	return func(l *Limiter) { l.idle = d }
}

// WithClock replaces time.Now for eviction bookkeeping.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter returns nil (no limiting) when rps <= 0.
func NewLimiter(rps float64, burst int, opts ...LimiterOption) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    defaultIdleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, o := range opts {
		o(l)
	}
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); l.idle < refill {
		l.idle = refill
	}
	l.lastSweep = l.now()
	return l
}

// Len reports how many callers currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// sweep runs with l.mu held.
func (l *Limiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(1.0 / float64(l.rps))))
}

func callerKey(r *http.Request) string {
	if uid, ok := identity.UserID(r.Context()); ok {
		return "user:" + uid
	}
	return "ip:" + clientIP(r)
}

func RateLimitMiddleware(l *Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.bucket(callerKey(r)).Allow() {
				next.ServeHTTP(w, r)
				return
			}
			tooManyRequests(w, l)
		})
	}
}

// FailedAuthLimit throttles clients by IP on 401 responses. Each 401 spends
// a token; once the bucket is empty every request from that IP gets 429
// until it refills, before any credential is checked. It must wrap
// Authenticate and the login route so their 401s are counted.
func FailedAuthLimit(l *Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b := l.bucket("ip:" + clientIP(r))
			if b.Tokens() < 1 {
				tooManyRequests(w, l)
				return
			}

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			if sw.status == http.StatusUnauthorized {
				b.Allow()
			}
		})
	}
}

func tooManyRequests(w http.ResponseWriter, l *Limiter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", l.retryAfter())
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(rateErr{Error: "too_many_requests"})
}
