// Package counters implements the hub's aggregate counter store in memory
// and on Redis.
package counters

import (
	"context"
	"errors"
	"math/bits"
	"sync"
	"time"
)

var (
	// ErrOverflow is returned when an increment would wrap the counter.
	ErrOverflow = errors.New("counter overflow")
	// ErrLimitExceeded is returned by IncrementWithin when the counter would
	// pass its limit.
	ErrLimitExceeded = errors.New("counter limit exceeded")
)

type Memory struct {
	mu      sync.Mutex
	values  map[string]uint64
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		values:  make(map[string]uint64),
		expires: make(map[string]time.Time),
		now:     now,
	}
}

func (m *Memory) Increment(_ context.Context, name string, delta uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(name)
	sum, carry := bits.Add64(m.values[name], delta, 0)
	if carry != 0 {
		return m.values[name], ErrOverflow
	}
	m.values[name] = sum
	return sum, nil
}

func (m *Memory) IncrementWithin(_ context.Context, name string, delta, limit uint64, ttl time.Duration) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(name)
	cur, exists := m.values[name]
	sum, carry := bits.Add64(cur, delta, 0)
	if carry != 0 || sum > limit {
		return cur, ErrLimitExceeded
	}
	m.values[name] = sum
	if !exists && ttl > 0 {
		m.expires[name] = m.now().Add(ttl)
	}
	return sum, nil
}

func (m *Memory) Get(_ context.Context, name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(name)
	return m.values[name], nil
}

// PruneExpired drops every expired counter and reports how many went.
func (m *Memory) PruneExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for name := range m.expires {
		if m.expire(name) {
			n++
		}
	}
	return n, nil
}

// expire drops name if its deadline has passed. Callers hold mu.
func (m *Memory) expire(name string) bool {
	at, ok := m.expires[name]
	if !ok || m.now().Before(at) {
		return false
	}
	delete(m.values, name)
	delete(m.expires, name)
	return true
}
