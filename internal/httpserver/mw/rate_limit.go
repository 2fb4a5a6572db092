package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/utils"
)

// KeyFunc names the bucket a request draws from.
type KeyFunc func(r *http.Request) string

// ClientKey buckets requests by client address.
func ClientKey(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		return "addr:" + utils.ClientAddr(r, trustProxy).String()
	}
}

type RateLimitConfig struct {
	Burst        int           // writes allowed back to back
	RefillPerMin int           // tokens added per minute
	MaxEntries   int           // bucket cap, least recently used evicted first (0: unbounded)
	IdleTTL      time.Duration // idle buckets are dropped after this (default 15m)
	Key          KeyFunc       // defaults to ClientKey(false)
	Now          func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

type limiter struct {
	cfg  RateLimitConfig
	rate float64 // tokens per second

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerMin = max(cfg.RefillPerMin, 1)
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Key == nil {
		cfg.Key = ClientKey(false)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &limiter{
		cfg:     cfg,
		rate:    float64(cfg.RefillPerMin) / 60,
		buckets: make(map[string]*bucket),
	}
}

// take consumes one token of key. When none is left it returns the wait
// until the next one.
func (l *limiter) take(key string) (ok bool, remaining int, retryAfter time.Duration) {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		l.makeRoom(now)
		b = &bucket{tokens: float64(l.cfg.Burst), last: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(l.cfg.Burst), b.tokens+elapsed*l.rate)
	}
	b.last = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
		return false, 0, max(wait, time.Second)
	}
	b.tokens--
	return true, int(b.tokens), 0
}

// makeRoom drops idle buckets and, when the cap is still reached, the least
// recently used one. Called with l.mu held.
func (l *limiter) makeRoom(now time.Time) {
	if l.cfg.MaxEntries <= 0 || len(l.buckets) < l.cfg.MaxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, b := range l.buckets {
		if now.Sub(b.last) > l.cfg.IdleTTL {
			delete(l.buckets, k)
			continue
		}
		if oldestKey == "" || b.last.Before(oldest) {
			oldestKey, oldest = k, b.last
		}
	}

	if len(l.buckets) >= l.cfg.MaxEntries && oldestKey != "" {
		delete(l.buckets, oldestKey)
	}
}

// RateLimit applies a token bucket per key. Only writes go through it:
// reads are served from the local mirror.
func RateLimit(cfg RateLimitConfig, log logger.Logger) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.cfg.Key(r)

			ok, remaining, retry := l.take(key)
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				secs := int(math.Ceil(retry.Seconds()))
				log.Debug("RateLimit: request rejected",
					logger.String("key", key),
					logger.String("path", r.URL.Path),
					logger.Int("retry_after", secs))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				reject(w, http.StatusTooManyRequests, "rate_limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
