// Package ops provides a best-effort audit publisher for routine lifecycle
// events. Events may be sampled and are dropped while the store is
// unhealthy; Emit never fails the calling operation.
package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/circuit"
)

type Publisher struct {
	store   audit.Store
	sampler *Sampler
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

type Option func(*Publisher)

func WithSampler(s *Sampler) Option {
	return func(p *Publisher) { p.sampler = s }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) { p.breaker = b }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
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
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sampler == nil {
		p.sampler = NewSampler(1)
	}
	if p.breaker == nil {
		p.breaker = circuit.New("audit-ops", circuit.WithCooldown(time.Minute))
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if !p.sampler.ShouldSample(event.Action) {
		p.metrics.IncSampled()
		return nil
	}
	if !p.breaker.Allow() {
		p.metrics.IncCircuitBreakerDropped()
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	event.Category = audit.CategoryOperations

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.metrics.SetCircuitBreakerState(true)
			p.logger.WarnContext(ctx, "ops audit circuit opened", "error", err)
		}
		p.logger.DebugContext(ctx, "ops audit event dropped",
			"action", event.Action,
			"error", err,
		)
		return nil
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.SetCircuitBreakerState(false)
	}
	p.metrics.IncTracked()
	return nil
}
