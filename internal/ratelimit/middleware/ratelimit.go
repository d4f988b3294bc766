// Package middleware enforces per-client-IP request budgets on HTTP routes.
//
// The primary bucket store is normally Redis. Consecutive primary errors open
// a circuit breaker and the limiter serves from an in-memory fallback,
// flagging responses with X-RateLimit-Status: degraded, until the primary
// recovers. A request is never refused because the limiter itself failed.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ringside/internal/ratelimit/metrics"
	"ringside/internal/ratelimit/models"
	"ringside/internal/ratelimit/store/bucket"
	"ringside/pkg/platform/circuit"
	"ringside/pkg/platform/httputil"
	"ringside/pkg/requestcontext"
)

// BucketStore is a sliding-window counter.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithLimit overrides the budget for one class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		if limit.RequestsPerWindow > 0 && limit.Window > 0 {
			m.limits[class] = limit
		}
	}
}

// WithBreaker replaces the default breaker. Tests only.
func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.breaker = b
	}
}

// DefaultLimits are per client IP per minute.
var DefaultLimits = map[models.EndpointClass]models.Limit{
	models.ClassRedeem: {RequestsPerWindow: 30, Window: time.Minute},
	models.ClassWrite:  {RequestsPerWindow: 120, Window: time.Minute},
}

// New builds the middleware over primary. A nil primary uses the in-memory
// store directly and never degrades.
func New(primary BucketStore, opts ...Option) *Middleware {
	fallback := bucket.NewInMemoryBucketStore()
	m := &Middleware{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("ratelimit-primary"),
		limits:   make(map[models.EndpointClass]models.Limit, len(DefaultLimits)),
		logger:   slog.Default(),
	}
	for class, limit := range DefaultLimits {
		m.limits[class] = limit
	}
	if m.primary == nil {
		m.primary = fallback
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		m.logger.Info("rate limiting disabled")
	}
	return m
}

// Limit returns middleware charging one request to class for the client IP.
func (m *Middleware) Limit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.disabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			limit, ok := m.limits[class]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			key := models.NewIPRateLimitKey(requestcontext.ClientIP(ctx), class)
			result, degraded := m.check(ctx, key, limit)
			if result == nil {
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.IncRejected(string(class))
				}
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// check consults the primary and falls back while the breaker is open. A nil
// result means both stores failed and the request is let through.
func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool) {
	result, err := m.primary.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncStoreErrors()
		}
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.logger.WarnContext(ctx, "rate limit store failing; switching to in-memory fallback", "error", err)
			if m.metrics != nil {
				m.metrics.SetDegraded(true, true)
			}
		}
		if !useFallback {
			m.logger.ErrorContext(ctx, "rate limit check failed", "error", err)
			return nil, false
		}
		return m.fromFallback(ctx, key, limit)
	}

	usePrimary, change := m.breaker.RecordSuccess()
	if change.Closed {
		m.logger.InfoContext(ctx, "rate limit store recovered")
		if m.metrics != nil {
			m.metrics.SetDegraded(false, false)
		}
	}
	if !usePrimary {
		return m.fromFallback(ctx, key, limit)
	}
	return result, false
}

func (m *Middleware) fromFallback(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool) {
	result, err := m.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	if err != nil {
		m.logger.ErrorContext(ctx, "fallback rate limit check failed", "error", err)
		return nil, true
	}
	return result, true
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:            "rate-limited",
		ErrorDescription: "too many requests from this address; try again later",
		RetryAfter:       result.RetryAfter,
	})
}
