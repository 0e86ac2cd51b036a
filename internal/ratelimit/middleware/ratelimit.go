// Package middleware enforces per-caller request budgets on the hub API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bridgehub/internal/ratelimit/models"
	dErrors "bridgehub/pkg/domain-errors"
	"bridgehub/pkg/platform/circuit"
	"bridgehub/pkg/platform/httputil"
	"bridgehub/pkg/requestcontext"
)

// Store admits or rejects one request against a keyed window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

// Middleware limits authenticated callers. When the primary store fails,
// requests are counted by the fallback store until the breaker closes; with
// no fallback, requests pass unchecked.
type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

func WithFallback(s Store) Option {
	return func(m *Middleware) { m.fallback = s }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) { m.breaker = b }
}

func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) { m.limits[class] = limit }
}

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func New(primary Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		limits: map[models.EndpointClass]models.Limit{
			models.ClassRead:  {RequestsPerWindow: 100, Window: time.Minute},
			models.ClassWrite: {RequestsPerWindow: 30, Window: time.Minute},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.breaker == nil {
		m.breaker = circuit.New("ratelimit")
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerCaller must run after authentication. Requests without a caller pass
// through so the handler can reject them.
func (m *Middleware) PerCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		caller, ok := requestcontext.Caller(ctx)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		class := models.ClassFor(r.Method)
		limit := m.limits[class]
		result, degraded := m.check(ctx, models.CallerKey(caller, class), limit)
		if degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if result == nil {
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "request quota exceeded, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check returns a nil result when no store could answer.
func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, bool) {
	if m.breaker.Allow() {
		result, err := m.primary.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
		if err == nil {
			if _, change := m.breaker.RecordSuccess(); change.Closed {
				m.logger.Info("rate limit store recovered")
			}
			return result, false
		}
		if _, change := m.breaker.RecordFailure(); change.Opened {
			m.logger.Warn("rate limit store failing, using fallback", "error", err)
		} else {
			m.logger.Error("rate limit check failed", "error", err)
		}
	}
	if m.fallback == nil {
		return nil, true
	}
	result, err := m.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	if err != nil {
		m.logger.Error("fallback rate limit check failed", "error", err)
		return nil, true
	}
	return result, true
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
