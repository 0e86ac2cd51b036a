package ops

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgehub/pkg/domain"
	audit "bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/audit/store/memory"
	"bridgehub/pkg/platform/circuit"
)

var actor = domain.Identity{1}

type flakyStore struct {
	audit.Store
	err   error
	calls int
}

func (f *flakyStore) Append(ctx context.Context, e audit.Event) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return f.Store.Append(ctx, e)
}

func TestPublisher_Emit(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := NewMetrics(prometheus.NewRegistry())
	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	p := New(store, WithMetrics(m), WithClock(func() time.Time { return fixed }))

	require.NoError(t, p.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventWalletRegistered)}))

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
	assert.True(t, fixed.Equal(events[0].Timestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tracked))
}

func TestPublisher_Sampling(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := NewMetrics(prometheus.NewRegistry())
	sampler := NewSampler(1)
	sampler.SetRate(string(audit.EventTransactionSigned), 0)
	p := New(store, WithMetrics(m), WithSampler(sampler))

	require.NoError(t, p.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventTransactionSigned)}))
	require.NoError(t, p.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventWalletRegistered)}))

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventWalletRegistered), events[0].Action)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sampled))
}

func TestPublisher_StoreFailureNeverFails(t *testing.T) {
	store := &flakyStore{Store: memory.NewInMemoryStore(), err: errors.New("db down")}
	m := NewMetrics(prometheus.NewRegistry())
	breaker := circuit.New("audit-ops", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	p := New(store, WithMetrics(m), WithBreaker(breaker))

	for range 5 {
		assert.NoError(t, p.Emit(context.Background(), audit.Event{Actor: actor, Action: "x"}))
	}

	assert.Equal(t, 2, store.calls, "breaker stops calling the store once open")
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PersistFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CircuitBreakerDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState))
}

func TestSampler_Bounds(t *testing.T) {
	s := NewSampler(5)
	assert.True(t, s.ShouldSample("anything"))

	s.SetDefaultRate(-1)
	assert.False(t, s.ShouldSample("anything"))

	s.SetRate("kept", 2)
	assert.True(t, s.ShouldSample("kept"))
}
