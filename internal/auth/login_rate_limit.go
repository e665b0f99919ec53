package auth

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"newsletter-backend/internal/observability"
)

// IPLimitStore counts login attempts per client address.
type IPLimitStore interface {
	AllowLoginIP(ctx context.Context, ip string, maxHits int, window time.Duration, now time.Time) (bool, time.Duration, error)
}

type LoginRateLimiter struct {
	store   IPLimitStore
	maxHits int
	window  time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewLoginRateLimiter(store IPLimitStore, maxHits int, window time.Duration, logger *observability.Logger, metrics *observability.Metrics) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		store:   store,
		maxHits: maxHits,
		window:  window,
		logger:  logger,
		metrics: metrics,
	}
}

// Middleware throttles the wrapped handler per client IP. A failing store
// lets the request through: login stays available when the limiter table
// is unreachable.
func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := observability.ClientIP(r)

		allowed, wait, err := l.store.AllowLoginIP(r.Context(), ip, l.maxHits, l.window, time.Now().UTC())
		if err != nil {
			l.logger.Error("login_rate_limit_failed", map[string]any{"error": err.Error()})
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			l.metrics.RecordLoginAttempt("throttled")
			l.logger.Warn("login_rate_limited", map[string]any{"ip": ip})
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			http.Error(w, "Too many login attempts, please try again later.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// MemoryIPLimits is a sliding-window IPLimitStore for a single instance.
type MemoryIPLimits struct {
	mu        sync.Mutex
	hitByIP   map[string][]time.Time
	maxMemory int
}

func NewMemoryIPLimits() *MemoryIPLimits {
	return &MemoryIPLimits{
		hitByIP:   make(map[string][]time.Time),
		maxMemory: 5000,
	}
}

func (m *MemoryIPLimits) AllowLoginIP(_ context.Context, ip string, maxHits int, window time.Duration, now time.Time) (bool, time.Duration, error) {
	threshold := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := m.hitByIP[ip]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= maxHits {
		m.hitByIP[ip] = filtered
		return false, retryAfter(filtered[0].Add(window), now), nil
	}

	filtered = append(filtered, now)
	m.hitByIP[ip] = filtered

	if len(m.hitByIP) > m.maxMemory {
		for key, value := range m.hitByIP {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(m.hitByIP, key)
			}
		}
	}

	return true, 0, nil
}

func retryAfter(until, now time.Time) time.Duration {
	d := until.Sub(now.UTC())
	if d < time.Second {
		d = time.Second
	}
	return d
}
