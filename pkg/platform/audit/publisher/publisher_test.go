package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgehub/pkg/domain"
	audit "bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/audit/store/memory"
)

var actor = domain.Identity{1}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Actor:  actor,
		Action: string(audit.EventWalletRegistered),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventWalletRegistered), events[0].Action)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_DerivesCategoryFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventJurisdictionBlocked)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventComplianceVerified)}))

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.Equal(t, audit.CategoryCompliance, events[1].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Actor:  actor,
			Action: string(audit.EventTransferInitiated),
		})
		require.NoError(t, err)
	}

	require.NoError(t, pub.Close())

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterCloseWritesThrough(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))
	require.NoError(t, pub.Close())

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Actor: actor, Action: "late"}))

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_BufferFullDoesNotBlock(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{Actor: actor, Action: "burst"})
		}()
	}
	wg.Wait()
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Actor:     actor,
		Action:    string(audit.EventTimestampCreated),
		Timestamp: fixed,
	}))

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, fixed.Equal(events[0].Timestamp))
}

type recorder struct{ events []audit.Event }

func (r *recorder) Emit(_ context.Context, e audit.Event) error {
	r.events = append(r.events, e)
	return nil
}

func TestRouter(t *testing.T) {
	security := &recorder{}
	fallback := &recorder{}
	r := NewRouter(fallback).Route(audit.CategorySecurity, security)

	require.NoError(t, r.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventUnauthorizedAttempt)}))
	require.NoError(t, r.Emit(context.Background(), audit.Event{Actor: actor, Action: string(audit.EventWalletRegistered)}))
	require.NoError(t, r.Emit(context.Background(), audit.Event{Actor: actor, Action: "custom", Category: audit.CategorySecurity}))

	require.Len(t, security.events, 2)
	assert.Equal(t, audit.CategorySecurity, security.events[0].Category)
	require.Len(t, fallback.events, 1)
	assert.Equal(t, string(audit.EventWalletRegistered), fallback.events[0].Action)

	assert.NoError(t, NewRouter(nil).Emit(context.Background(), audit.Event{Action: "dropped"}))
}
