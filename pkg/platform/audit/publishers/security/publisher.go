// Package security buffers security audit events (authorization failures,
// restricted-jurisdiction hits, configuration changes) and flushes them to
// the audit store in batches.
package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "bridgehub/pkg/platform/audit"
)

const (
	defaultBufferCapacity = 10000
	defaultBatchSize      = 100
	defaultFlushInterval  = time.Second
)

type Publisher struct {
	store    audit.Store
	buffer   *RingBuffer
	batch    int
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time

	flushMu sync.Mutex
}

type Option func(*Publisher)

func WithCapacity(n int) Option {
	return func(p *Publisher) { p.buffer = NewRingBuffer(n) }
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batch = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:    store,
		batch:    defaultBatchSize,
		interval: defaultFlushInterval,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer == nil {
		p.buffer = NewRingBuffer(defaultBufferCapacity)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Emit stamps and buffers event. It never blocks on the store.
func (p *Publisher) Emit(_ context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	event.Category = audit.CategorySecurity
	p.buffer.Enqueue(event)
	return nil
}

// Run flushes the buffer every interval until ctx is done, then flushes
// what is left.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Flush(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush writes buffered events in batches. Events that fail to persist are
// logged and dropped.
func (p *Publisher) Flush(ctx context.Context) int {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	written := 0
	for {
		events := p.buffer.DequeueBatch(p.batch)
		if len(events) == 0 {
			break
		}
		for _, e := range events {
			if err := p.store.Append(ctx, e); err != nil {
				p.logger.ErrorContext(ctx, "failed to persist security audit event",
					"action", e.Action,
					"event_id", e.ID,
					"error", err,
				)
				continue
			}
			written++
		}
	}
	if dropped := p.buffer.Dropped(); dropped > 0 {
		p.logger.WarnContext(ctx, "security audit buffer overflowed", "dropped_total", dropped)
	}
	return written
}
