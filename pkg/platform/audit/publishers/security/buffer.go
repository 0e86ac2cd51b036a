package security

import (
	"sync"

	audit "bridgehub/pkg/platform/audit"
)

// RingBuffer holds security events between flushes. A full buffer
// overwrites its oldest event, so Emit never blocks on a slow store.
type RingBuffer struct {
	mu      sync.Mutex
	slots   []audit.Event
	start   int
	size    int
	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &RingBuffer{slots: make([]audit.Event, capacity)}
}

// Enqueue appends event, evicting the oldest when full.
func (b *RingBuffer) Enqueue(event audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.slots) {
		b.slots[b.start] = audit.Event{}
		b.start = (b.start + 1) % len(b.slots)
		b.size--
		b.dropped++
	}
	b.slots[(b.start+b.size)%len(b.slots)] = event
	b.size++
}

// DequeueBatch removes and returns up to n events, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	n = min(n, b.size)
	if n <= 0 {
		return nil
	}
	out := make([]audit.Event, n)
	for i := range out {
		idx := (b.start + i) % len(b.slots)
		out[i] = b.slots[idx]
		b.slots[idx] = audit.Event{}
	}
	b.start = (b.start + n) % len(b.slots)
	b.size -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped counts evictions since the buffer was created.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
