package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/bridge/models"
	"bridgehub/internal/hub"
	"bridgehub/pkg/platform/sentinel"
)

// maxParallelVerifications bounds concurrent signature checks per request.
const maxParallelVerifications = 8

// checkFreshness rejects confirmations older than the configured window.
func (s *Service) checkFreshness(ctx context.Context, cfg hub.Config, confirmations []models.RelayConfirmation) error {
	if cfg.ConfirmationMaxAge <= 0 {
		return nil
	}
	oldest := s.now(ctx).Add(-cfg.ConfirmationMaxAge).Unix()
	for i, c := range confirmations {
		if c.Timestamp < oldest {
			return fmt.Errorf("%w: confirmation %d from %s at %d", hub.ErrStaleConfirmation, i, c.Relayer, c.Timestamp)
		}
	}
	return nil
}

// verifyRelaySignatures checks every (signer, signature) pair against the
// confirmation digest in parallel. The first failure cancels the rest.
func (s *Service) verifyRelaySignatures(ctx context.Context, transferID string, confirmations []models.RelayConfirmation) error {
	for i, c := range confirmations {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("confirmation %d: %w", i, err)
		}
	}
	if len(confirmations) == 0 {
		return nil
	}
	if s.signatures == nil {
		return fmt.Errorf("%w: no signature verifier configured", sentinel.ErrUnavailable)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelVerifications)
	for i, c := range confirmations {
		digest := envelope.ConfirmationDigest(transferID, c)
		for j, signer := range c.Signers {
			sig := c.Signatures[j]
			g.Go(func() error {
				if err := s.signatures.Verify(gctx, signer, digest[:], sig); err != nil {
					return fmt.Errorf("%w: confirmation %d signer %d (%s): %w", hub.ErrInvalidSignature, i, j, signer, err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}
