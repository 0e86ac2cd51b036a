package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgehub/internal/ratelimit/models"
	"bridgehub/internal/ratelimit/store/bucket"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/circuit"
	"bridgehub/pkg/testutil"
)

type failingStore struct{ calls int }

func (f *failingStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	f.calls++
	return nil, errors.New("redis down")
}

var caller = domain.Identity{1}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func get(t *testing.T, h http.Handler, who *domain.Identity) int {
	t.Helper()
	req := testutil.NewRequest(t, http.MethodGet, "/wallets")
	if who != nil {
		req = testutil.WithCaller(req, *who)
	}
	return testutil.DoRequest(h, req).Code
}

func TestPerCaller(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("limits each caller and class separately", func(t *testing.T) {
		m := New(bucket.NewInMemoryBucketStore(), logger,
			WithLimit(models.ClassRead, models.Limit{RequestsPerWindow: 2, Window: time.Minute}))
		h := m.PerCaller(okHandler())

		assert.Equal(t, http.StatusOK, get(t, h, &caller))
		assert.Equal(t, http.StatusOK, get(t, h, &caller))

		req := testutil.WithCaller(testutil.NewRequest(t, http.MethodGet, "/wallets"), caller)
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
		assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")

		other := domain.Identity{2}
		assert.Equal(t, http.StatusOK, get(t, h, &other))

		write := testutil.WithCaller(testutil.NewRequest(t, http.MethodPost, "/transfers"), caller)
		assert.Equal(t, http.StatusOK, testutil.DoRequest(h, write).Code)
	})

	t.Run("anonymous requests pass through", func(t *testing.T) {
		m := New(bucket.NewInMemoryBucketStore(), logger,
			WithLimit(models.ClassRead, models.Limit{RequestsPerWindow: 1, Window: time.Minute}))
		h := m.PerCaller(okHandler())
		assert.Equal(t, http.StatusOK, get(t, h, nil))
		assert.Equal(t, http.StatusOK, get(t, h, nil))
	})

	t.Run("disabled", func(t *testing.T) {
		store := &failingStore{}
		h := New(store, logger, WithDisabled(true)).PerCaller(okHandler())
		assert.Equal(t, http.StatusOK, get(t, h, &caller))
		assert.Zero(t, store.calls)
	})

	t.Run("store failure without fallback fails open", func(t *testing.T) {
		h := New(&failingStore{}, logger).PerCaller(okHandler())
		req := testutil.WithCaller(testutil.NewRequest(t, http.MethodGet, "/wallets"), caller)
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
	})

	t.Run("open breaker skips the primary and uses the fallback", func(t *testing.T) {
		primary := &failingStore{}
		breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
		m := New(primary, logger,
			WithBreaker(breaker),
			WithFallback(bucket.NewInMemoryBucketStore()),
			WithLimit(models.ClassRead, models.Limit{RequestsPerWindow: 3, Window: time.Minute}))
		h := m.PerCaller(okHandler())

		for range 3 {
			require.Equal(t, http.StatusOK, get(t, h, &caller))
		}
		assert.True(t, breaker.IsOpen())
		assert.Equal(t, 2, primary.calls)
		assert.Equal(t, http.StatusTooManyRequests, get(t, h, &caller))
		assert.Equal(t, 2, primary.calls)
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.Equal(t, 1, models.RetryAfterSeconds(now, now))
	assert.Equal(t, 1, models.RetryAfterSeconds(now, now.Add(200*time.Millisecond)))
	assert.Equal(t, 3, models.RetryAfterSeconds(now, now.Add(2100*time.Millisecond)))
}
