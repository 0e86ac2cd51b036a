// Package notifier delivers transfer envelopes to relayers. Broker adapters
// live in subpackages; Guard wraps any of them with a circuit breaker.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"bridgehub/internal/bridge/models"
	"bridgehub/internal/hub/ports"
	"bridgehub/pkg/platform/circuit"
	"bridgehub/pkg/platform/sentinel"
)

// Guard stops calling an unhealthy broker. While the breaker is open,
// Publish fails fast with sentinel.ErrUnavailable and the caller keeps the
// transfer for a later PublishTransfer.
type Guard struct {
	next    ports.Notifier
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuard(next ports.Notifier, breaker *circuit.Breaker, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{next: next, breaker: breaker, logger: logger}
}

func (g *Guard) Publish(ctx context.Context, msg models.CrossChainMessage) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%w: %s breaker open", sentinel.ErrUnavailable, g.breaker.Name())
	}
	if err := g.next.Publish(ctx, msg); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "notifier breaker opened",
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "notifier breaker closed", "breaker", g.breaker.Name())
	}
	return nil
}
