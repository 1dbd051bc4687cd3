package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skillbase/skillbase/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit describes a token bucket: Requests per Window, with up to Burst
// requests available immediately.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Profiles for different endpoint classes. Each can be overridden with
// RATELIMIT_{NAME}_REQUESTS, RATELIMIT_{NAME}_WINDOW_SEC and
// RATELIMIT_{NAME}_BURST environment variables.
var (
	// StrictLimit protects credential endpoints against brute force.
	StrictLimit = RateLimit{Requests: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers authenticated state-changing operations.
	ModerateLimit = RateLimit{Requests: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers authenticated reads.
	LenientLimit = RateLimit{Requests: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers unauthenticated read-only endpoints.
	PublicLimit = RateLimit{Requests: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = RateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = RateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = RateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = RateLimitFromEnv("PUBLIC", PublicLimit)
}

// RateLimitFromEnv overlays RATELIMIT_{name}_* environment variables on top of
// the given defaults. Unset or invalid values leave the default in place.
func RateLimitFromEnv(name string, def RateLimit) RateLimit {
	cfg := def
	if v := os.Getenv("RATELIMIT_" + name + "_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Requests = n
		}
	}
	if v := os.Getenv("RATELIMIT_" + name + "_WINDOW_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Window = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RATELIMIT_" + name + "_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Burst = n
		}
	}
	return cfg
}

// KeyFunc derives the bucket key for a request. Requests with the same key
// share a limiter.
type KeyFunc func(*http.Request) string

// ClientIP resolves the originating client address, honouring
// X-Forwarded-For and X-Real-IP set by a fronting proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuthenticatedUser keys by the user id placed in the context by
// AuthnMiddleware. Empty for unauthenticated requests.
func AuthenticatedUser(r *http.Request) string {
	if id, ok := r.Context().Value(CtxKeyUserID).(string); ok {
		return id
	}
	return ""
}

// CompositeKey joins the non-empty results of several key funcs.
func CompositeKey(sep string, fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		var parts []string
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, sep)
	}
}

// limiterPool holds one token bucket per key with periodic eviction of idle
// buckets.
type limiterPool struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (p *limiterPool) get(key string) *rate.Limiter {
	if l, ok := p.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := p.limiters.LoadOrStore(key, rate.NewLimiter(p.rate, p.burst))
	p.evictIdle()
	return l.(*rate.Limiter)
}

// evictIdle drops buckets whose tokens have fully refilled. Runs at most once
// every five minutes so the pool does not grow without bound on ephemeral
// keys.
func (p *limiterPool) evictIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastCleanup) < 5*time.Minute {
		return
	}
	p.lastCleanup = time.Now()

	p.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(p.burst) {
			p.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware enforces the given limit per key. Requests over the
// limit receive 429 with a Retry-After header.
func RateLimitMiddleware(cfg RateLimit, keyFn KeyFunc) Middleware {
	pool := &limiterPool{
		rate:        rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyFn(r)
			if key == "" {
				log.Warn("rate limit key unavailable, passing request through")
				next.ServeHTTP(w, r)
				return
			}

			limiter := pool.get(key)
			if !limiter.Allow() {
				res := limiter.Reserve()
				delay := res.Delay()
				res.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client address.
func RateLimitByIP(cfg RateLimit) Middleware {
	return RateLimitMiddleware(cfg, ClientIP)
}

// RateLimitByUser limits by authenticated user, falling back to the client
// address when the request carries no identity.
func RateLimitByUser(cfg RateLimit) Middleware {
	return RateLimitMiddleware(cfg, CompositeKey(":", AuthenticatedUser, ClientIP))
}
