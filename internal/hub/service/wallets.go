package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bridgehub/internal/compliance"
	"bridgehub/internal/hub"
	"bridgehub/internal/hub/store/counters"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/sentinel"
)

// dailyCounterTTL outlives the UTC day a daily volume counter is named for.
const dailyCounterTTL = 48 * time.Hour

// RegisterWallet creates an unverified wallet owned by caller.
func (s *Service) RegisterWallet(ctx context.Context, caller domain.Identity, publicKey, metadata []byte) (_ wallet.Wallet, err error) {
	ctx, done := s.begin(ctx, "RegisterWallet", caller)
	defer func() { err = done(err) }()

	if _, err := s.loadConfig(ctx); err != nil {
		return wallet.Wallet{}, err
	}
	if len(publicKey) == 0 {
		return wallet.Wallet{}, fmt.Errorf("%w: public key is required", hub.ErrInvalidRequest)
	}

	w := wallet.Wallet{
		Owner:     caller,
		CreatedAt: s.now(ctx),
		Verified:  false,
		Tier:      compliance.TierNone,
		PublicKey: publicKey,
		Metadata:  metadata,
	}
	if err := s.wallets.Create(ctx, w); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return wallet.Wallet{}, hub.ErrWalletExists
		}
		return wallet.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	s.increment(ctx, hub.CounterRegisteredWallets, 1)

	s.logAudit(ctx, audit.EventWalletRegistered, caller, caller.String(), "", "granted", "")
	return w, nil
}

// Wallet returns the wallet owned by owner.
func (s *Service) Wallet(ctx context.Context, owner domain.Identity) (wallet.Wallet, error) {
	w, err := s.loadWallet(ctx, owner)
	return w, hub.Translate(err)
}

func (s *Service) loadWallet(ctx context.Context, owner domain.Identity) (wallet.Wallet, error) {
	w, err := s.wallets.Get(ctx, owner)
	if errors.Is(err, sentinel.ErrNotFound) {
		return wallet.Wallet{}, hub.ErrWalletNotFound
	}
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("load wallet: %w", err)
	}
	return w, nil
}

// SignTransaction accepts the owner's signature over a transaction after the
// wallet rules pass. The amount counts against the owner's daily limit.
func (s *Service) SignTransaction(ctx context.Context, caller domain.Identity, tx hub.TransactionSignatureData) (_ hub.TransactionReceipt, err error) {
	ctx, done := s.begin(ctx, "SignTransaction", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return hub.TransactionReceipt{}, err
	}
	if len(tx.TransactionHash) == 0 || len(tx.Signature) == 0 {
		return hub.TransactionReceipt{}, fmt.Errorf("%w: transaction hash and signature are required", hub.ErrInvalidRequest)
	}
	w, err := s.loadWallet(ctx, caller)
	if err != nil {
		return hub.TransactionReceipt{}, err
	}
	if w.Verified && w.Tier == compliance.TierNone {
		return hub.TransactionReceipt{}, fmt.Errorf("%w: verified wallet holds no tier", compliance.ErrComplianceRequired)
	}
	if !cfg.Wallet.ChainAllowed(tx.DestinationChain) {
		return hub.TransactionReceipt{}, fmt.Errorf("%w: %s", wallet.ErrChainNotAllowed, tx.DestinationChain)
	}
	if err := wallet.ValidateTransfer(w, tx.Amount, cfg.Wallet); err != nil {
		return hub.TransactionReceipt{}, err
	}

	unlock := s.locks.lock(caller)
	defer unlock()

	now := s.now(ctx)
	daily := hub.DailyCounter(caller, now)
	spent, err := s.counters.Get(ctx, daily)
	if err != nil {
		return hub.TransactionReceipt{}, fmt.Errorf("read daily volume: %w", err)
	}
	if err := wallet.VerifyDailyLimit(spent, tx.Amount, cfg.Wallet); err != nil {
		return hub.TransactionReceipt{}, err
	}

	if s.signatures == nil {
		return hub.TransactionReceipt{}, fmt.Errorf("%w: no signature verifier configured", sentinel.ErrUnavailable)
	}
	if err := s.signatures.Verify(ctx, caller, tx.TransactionHash, tx.Signature); err != nil {
		return hub.TransactionReceipt{}, fmt.Errorf("%w: %w", hub.ErrInvalidSignature, err)
	}

	// The counter is shared by every hub instance; the read above only
	// fails fast.
	total, err := s.counters.IncrementWithin(ctx, daily, tx.Amount, cfg.Wallet.MaxDailyTransfer, dailyCounterTTL)
	if errors.Is(err, counters.ErrLimitExceeded) {
		return hub.TransactionReceipt{}, fmt.Errorf("%w: limit %d", wallet.ErrDailyLimitExceeded, cfg.Wallet.MaxDailyTransfer)
	}
	if err != nil {
		return hub.TransactionReceipt{}, fmt.Errorf("record daily volume: %w", err)
	}

	s.logAudit(ctx, audit.EventTransactionSigned, caller, caller.String(), "", "granted", "")
	return hub.TransactionReceipt{
		Owner:           caller,
		TransactionHash: tx.TransactionHash,
		Amount:          tx.Amount,
		Nonce:           tx.Nonce,
		DailyTotal:      total,
		SignedAt:        now,
	}, nil
}

// VerifyCompliance attaches a verification record to owner's wallet. Only
// the compliance authority may verify.
func (s *Service) VerifyCompliance(ctx context.Context, caller, owner domain.Identity, rec compliance.Record) (_ wallet.Wallet, err error) {
	ctx, done := s.begin(ctx, "VerifyCompliance", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if err := s.requireRole(ctx, cfg.ComplianceAuthority, "compliance authority", caller); err != nil {
		return wallet.Wallet{}, err
	}
	if !rec.Tier.IsValid() {
		return wallet.Wallet{}, fmt.Errorf("%w: unknown tier %d", hub.ErrInvalidRequest, rec.Tier)
	}
	unlock := s.locks.lock(owner)
	defer unlock()
	w, err := s.loadWallet(ctx, owner)
	if err != nil {
		return wallet.Wallet{}, err
	}

	if err := s.gate.CheckRecord(rec); err != nil {
		status := hub.StatusOf(err)
		s.metrics.IncrementComplianceRejection(status)
		if errors.Is(err, compliance.ErrJurisdictionRestricted) {
			s.logAudit(ctx, audit.EventJurisdictionBlocked, caller, owner.String(), "", "denied", rec.Jurisdiction)
		}
		if auditErr := s.emitCompliance(ctx, audit.EventComplianceRejected, caller, owner.String(), "", "denied", status); auditErr != nil {
			return wallet.Wallet{}, errors.Join(err, auditErr)
		}
		return wallet.Wallet{}, err
	}

	w.ApplyRecord(rec)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.emitCompliance(ctx, audit.EventComplianceVerified, caller, owner.String(), "", "granted", rec.Tier.String()); err != nil {
			return err
		}
		if err := s.wallets.Update(ctx, w); err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return wallet.Wallet{}, err
	}
	s.increment(ctx, hub.CounterComplianceRecords, 1)
	return w, nil
}
