package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	apperrors "github.com/alchemorsel/chefnano/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address. Idle buckets
// are swept lazily on the request path once per cleanup interval.
type IPRateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	cleanup     time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

// NewIPRateLimiter creates a limiter from the rate limit configuration.
func NewIPRateLimiter(cfg config.RateLimitConfig) *IPRateLimiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(cfg.RequestsPerMin) / 60),
		burst:    burst,
		cleanup:  cleanup,
		now:      time.Now,
	}
}

// Allow reports whether the client may make a request now.
func (l *IPRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) >= l.cleanup {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.cleanup {
				delete(l.visitors, k)
			}
		}
		l.lastCleanup = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// retryAfter is the number of whole seconds until one token refills.
func (l *IPRateLimiter) retryAfter() int {
	if l.limit <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(l.limit)))
}

// Len returns the number of tracked clients.
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RateLimit rejects clients that exceed their bucket with 429.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.RateLimit.Enabled || m.skipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !m.limiter.Allow(ip) {
			m.logger.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", strconv.Itoa(m.limiter.retryAfter()))
			WriteError(w, r, apperrors.NewTooManyRequestsError())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware runs
// earlier and has already applied any proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
