package service

import (
	"context"
	"errors"
	"fmt"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/bridge/models"
	"bridgehub/internal/bridge/quorum"
	"bridgehub/internal/bridge/transfer"
	"bridgehub/internal/compliance"
	"bridgehub/internal/compliance/policy"
	"bridgehub/internal/hub"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/sentinel"
)

func (s *Service) machine(cfg hub.Config) *transfer.Machine {
	return transfer.NewMachine(s.gate, cfg.Bridge, cfg.Limits())
}

func (s *Service) loadTransfer(ctx context.Context, id string) (models.CrossChainTransfer, error) {
	t, err := s.transfers.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.CrossChainTransfer{}, fmt.Errorf("%w: %s", hub.ErrTransferNotFound, id)
	}
	if err != nil {
		return models.CrossChainTransfer{}, fmt.Errorf("load transfer: %w", err)
	}
	return t, nil
}

// persist writes next over a transfer last seen in status from.
func (s *Service) persist(ctx context.Context, next models.CrossChainTransfer, from models.TransferStatus) error {
	if err := s.transfers.UpdateStatus(ctx, next, from); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return fmt.Errorf("%w: %s", hub.ErrConcurrentUpdate, next.ID)
		}
		return fmt.Errorf("update transfer: %w", err)
	}
	s.metrics.IncrementTransition(next.Status.String())
	return nil
}

// InitiateCrossChain admits a transfer from the caller's wallet, persists it
// and announces it to relayers. When only the announcement fails, the
// returned transfer is persisted and the error wraps ErrNotifierUnavailable;
// PublishTransfer retries the announcement.
func (s *Service) InitiateCrossChain(ctx context.Context, caller domain.Identity, req hub.InitiateRequest) (_ models.CrossChainTransfer, err error) {
	ctx, done := s.begin(ctx, "InitiateCrossChain", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	if req.Recipient.IsZero() {
		return models.CrossChainTransfer{}, fmt.Errorf("%w: recipient is required", hub.ErrInvalidRequest)
	}
	if !cfg.SupportsChain(req.SourceChain) {
		return models.CrossChainTransfer{}, fmt.Errorf("%w: source %s", hub.ErrUnsupportedChain, req.SourceChain)
	}
	if !cfg.SupportsChain(req.DestinationChain) {
		return models.CrossChainTransfer{}, fmt.Errorf("%w: destination %s", hub.ErrUnsupportedChain, req.DestinationChain)
	}
	w, err := s.loadWallet(ctx, caller)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}

	t := models.CrossChainTransfer{
		ID:               s.ids.NewID(),
		Sender:           caller,
		Recipient:        req.Recipient,
		Amount:           req.Amount,
		SourceChain:      req.SourceChain,
		DestinationChain: req.DestinationChain,
		TokenAddress:     req.TokenAddress,
		Nonce:            req.Nonce,
		Timestamp:        s.now(ctx).Unix(),
		Status:           models.StatusPending,
	}

	if s.policy != nil {
		if err := s.policy.Check(ctx, policyInput(t, w.Tier, w.Jurisdiction)); err != nil {
			if errors.Is(err, policy.ErrDenied) {
				s.logAudit(ctx, audit.EventComplianceRejected, caller, t.Recipient.String(), t.ID, "denied", err.Error())
			}
			return models.CrossChainTransfer{}, err
		}
	}

	initiated, err := s.machine(cfg).Initiate(t, w)
	if err != nil {
		if errors.Is(err, transfer.ErrComplianceRequired) {
			s.metrics.IncrementComplianceRejection(complianceReason(err))
		}
		if errors.Is(err, compliance.ErrJurisdictionRestricted) {
			s.logAudit(ctx, audit.EventJurisdictionBlocked, caller, w.Jurisdiction, t.ID, "denied", err.Error())
		}
		return models.CrossChainTransfer{}, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.emitCompliance(ctx, audit.EventTransferInitiated, caller, initiated.Recipient.String(), initiated.ID, "granted", ""); err != nil {
			return err
		}
		if err := s.transfers.Create(ctx, initiated); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return fmt.Errorf("%w: nonce %d", hub.ErrDuplicateNonce, initiated.Nonce)
			}
			return fmt.Errorf("create transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	s.metrics.IncrementTransition(initiated.Status.String())
	s.metrics.AddFee(initiated.Fee)
	s.increment(ctx, hub.CounterTotalTransactions, 1)
	s.increment(ctx, hub.CounterTotalVolume, initiated.Amount)

	if err := s.announce(ctx, models.KindTokenTransfer, initiated); err != nil {
		return initiated, err
	}
	return initiated, nil
}

// complianceReason names the compliance cause of a transfer rejection.
func complianceReason(err error) string {
	for _, cause := range []error{
		compliance.ErrJurisdictionRestricted,
		compliance.ErrComplianceRequired,
		compliance.ErrTierLimitExceeded,
	} {
		if errors.Is(err, cause) {
			return hub.StatusOf(cause)
		}
	}
	return hub.StatusOf(err)
}

func policyInput(t models.CrossChainTransfer, tier compliance.Tier, jurisdiction string) policy.Input {
	in := policy.Input{
		Sender:           t.Sender.String(),
		Recipient:        t.Recipient.String(),
		Amount:           t.Amount,
		SourceChain:      uint64(t.SourceChain),
		DestinationChain: uint64(t.DestinationChain),
		Tier:             tier.String(),
		Jurisdiction:     jurisdiction,
	}
	if t.TokenAddress != nil {
		in.Token = t.TokenAddress.String()
	}
	return in
}

// ConfirmCrossChain records relay confirmations for an initiated transfer.
// Each signer's signature over the confirmation digest is verified before
// the quorum is counted. On a quorum failure the transfer is unchanged and
// the caller may resubmit with more confirmations.
func (s *Service) ConfirmCrossChain(ctx context.Context, caller domain.Identity, id string, confirmations []models.RelayConfirmation) (_ models.CrossChainTransfer, err error) {
	ctx, done := s.begin(ctx, "ConfirmCrossChain", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	t, err := s.loadTransfer(ctx, id)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	if t.Status != models.StatusInitiated {
		return models.CrossChainTransfer{}, fmt.Errorf("%w: confirm requires initiated, got %s", transfer.ErrInvalidState, t.Status)
	}
	if err := s.checkFreshness(ctx, cfg, confirmations); err != nil {
		return models.CrossChainTransfer{}, err
	}
	if cfg.DedupeRelayers {
		confirmations = quorum.DistinctRelayers(confirmations)
	}
	if err := s.verifyRelaySignatures(ctx, t.ID, confirmations); err != nil {
		return models.CrossChainTransfer{}, err
	}

	confirmed, err := s.machine(cfg).Confirm(t, confirmations, cfg.Bridge.RequiredSignatures)
	if err != nil {
		if errors.Is(err, quorum.ErrInsufficientConfirmations) {
			s.metrics.IncrementQuorumFailure()
		}
		return models.CrossChainTransfer{}, err
	}
	if err := s.persist(ctx, confirmed, t.Status); err != nil {
		return models.CrossChainTransfer{}, err
	}

	s.logAudit(ctx, audit.EventTransferConfirmed, caller, confirmed.Sender.String(), confirmed.ID, "granted", "")
	return confirmed, nil
}

// CompleteCrossChain finalizes a confirmed transfer and announces the
// receipt. Only the bridge authority may complete.
func (s *Service) CompleteCrossChain(ctx context.Context, caller domain.Identity, id string) (_ models.CrossChainTransfer, err error) {
	ctx, done := s.begin(ctx, "CompleteCrossChain", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	t, err := s.loadTransfer(ctx, id)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	completed, err := s.machine(cfg).Complete(t, caller)
	if err != nil {
		if errors.Is(err, transfer.ErrUnauthorized) {
			s.logAudit(ctx, audit.EventUnauthorizedAttempt, caller, "bridge authority", t.ID, "denied", err.Error())
		}
		return models.CrossChainTransfer{}, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.emitCompliance(ctx, audit.EventTransferCompleted, caller, completed.Recipient.String(), completed.ID, "granted", ""); err != nil {
			return err
		}
		return s.persist(ctx, completed, t.Status)
	})
	if err != nil {
		return models.CrossChainTransfer{}, err
	}

	if err := s.announce(ctx, models.KindTokenReceive, completed); err != nil {
		return completed, err
	}
	return completed, nil
}

// CancelCrossChain cancels a pending or initiated transfer. The sender and
// the bridge authority may cancel; cancelling twice succeeds.
func (s *Service) CancelCrossChain(ctx context.Context, caller domain.Identity, id string) (_ models.CrossChainTransfer, err error) {
	ctx, done := s.begin(ctx, "CancelCrossChain", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	t, err := s.loadTransfer(ctx, id)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	if caller != t.Sender {
		if err := s.requireRole(ctx, cfg.BridgeAuthority, "bridge authority", caller); err != nil {
			return models.CrossChainTransfer{}, err
		}
	}
	return s.settle(ctx, caller, t, s.machine(cfg).Cancel, audit.EventTransferCancelled)
}

// FailCrossChain marks a non-terminal transfer failed. Only the bridge
// authority may fail a transfer; failing twice succeeds.
func (s *Service) FailCrossChain(ctx context.Context, caller domain.Identity, id, reason string) (_ models.CrossChainTransfer, err error) {
	ctx, done := s.begin(ctx, "FailCrossChain", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	t, err := s.loadTransfer(ctx, id)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	if err := s.requireRole(ctx, cfg.BridgeAuthority, "bridge authority", caller); err != nil {
		return models.CrossChainTransfer{}, err
	}
	next, err := s.settle(ctx, caller, t, s.machine(cfg).Fail, audit.EventTransferFailed)
	if err == nil && reason != "" {
		s.logger.InfoContext(ctx, "transfer failed", "transfer_id", t.ID, "reason", reason)
	}
	return next, err
}

func (s *Service) settle(
	ctx context.Context,
	caller domain.Identity,
	t models.CrossChainTransfer,
	apply func(models.CrossChainTransfer) (models.CrossChainTransfer, error),
	action audit.AuditEvent,
) (models.CrossChainTransfer, error) {
	next, err := apply(t)
	if err != nil {
		return models.CrossChainTransfer{}, err
	}
	if next.Status == t.Status {
		return next, nil
	}
	if err := s.persist(ctx, next, t.Status); err != nil {
		return models.CrossChainTransfer{}, err
	}
	s.logAudit(ctx, action, caller, next.Sender.String(), next.ID, "granted", "")
	return next, nil
}

// Transfer returns the transfer with id.
func (s *Service) Transfer(ctx context.Context, id string) (models.CrossChainTransfer, error) {
	t, err := s.loadTransfer(ctx, id)
	return t, hub.Translate(err)
}

// TransfersBySender lists the transfers sent by sender.
func (s *Service) TransfersBySender(ctx context.Context, sender domain.Identity) ([]models.CrossChainTransfer, error) {
	out, err := s.transfers.ListBySender(ctx, sender)
	if err != nil {
		return nil, hub.Translate(fmt.Errorf("list transfers: %w", err))
	}
	return out, nil
}

// PublishTransfer re-sends the envelope for a transfer whose announcement
// failed: TokenTransfer while initiated, TokenReceive once completed.
func (s *Service) PublishTransfer(ctx context.Context, caller domain.Identity, id string) (err error) {
	ctx, done := s.begin(ctx, "PublishTransfer", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return err
	}
	t, err := s.loadTransfer(ctx, id)
	if err != nil {
		return err
	}
	if caller != t.Sender {
		if err := s.requireRole(ctx, cfg.BridgeAuthority, "bridge authority", caller); err != nil {
			return err
		}
	}
	switch t.Status {
	case models.StatusInitiated:
		return s.announce(ctx, models.KindTokenTransfer, t)
	case models.StatusCompleted:
		return s.announce(ctx, models.KindTokenReceive, t)
	case models.StatusPending, models.StatusConfirmed, models.StatusFailed, models.StatusCancelled:
		return fmt.Errorf("%w: nothing to publish for %s transfer", transfer.ErrInvalidState, t.Status)
	}
	return fmt.Errorf("%w: unknown status %d", transfer.ErrInvalidState, t.Status)
}

// announce publishes the envelope of kind for t.
func (s *Service) announce(ctx context.Context, kind models.MessageKind, t models.CrossChainTransfer) error {
	msg := envelope.MessageFor(s.ids.NewID(), kind, t)
	if s.notifier == nil {
		s.logger.DebugContext(ctx, "no notifier configured, envelope not published", "transfer_id", t.ID, "kind", kind.String())
		return nil
	}
	if err := s.notifier.Publish(ctx, msg); err != nil {
		s.metrics.IncrementNotifierFailure(kind.String())
		s.logger.ErrorContext(ctx, "envelope publish failed",
			"transfer_id", t.ID,
			"message_id", msg.ID,
			"kind", kind.String(),
			"error", err,
		)
		return fmt.Errorf("%w: transfer %s: %w", hub.ErrNotifierUnavailable, t.ID, err)
	}
	return nil
}
