package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bridgehub/internal/compliance"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/sentinel"
)

type WalletStore struct {
	base
}

func NewWalletStore(db *sql.DB) *WalletStore {
	return &WalletStore{base{db: db}}
}

func (s *WalletStore) Create(ctx context.Context, w wallet.Wallet) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO hub_wallets (owner, created_at, verified, tier, jurisdiction, public_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, w.Owner.Bytes(), w.CreatedAt, w.Verified, int16(w.Tier), w.Jurisdiction, w.PublicKey, w.Metadata)
	if pqCode(err) == uniqueViolation {
		return fmt.Errorf("%w: wallet %s", sentinel.ErrConflict, w.Owner)
	}
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (s *WalletStore) Get(ctx context.Context, owner domain.Identity) (wallet.Wallet, error) {
	var (
		w    wallet.Wallet
		raw  []byte
		tier int16
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT owner, created_at, verified, tier, jurisdiction, public_key, metadata
		FROM hub_wallets WHERE owner = $1
	`, owner.Bytes()).Scan(&raw, &w.CreatedAt, &w.Verified, &tier, &w.Jurisdiction, &w.PublicKey, &w.Metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.Wallet{}, sentinel.ErrNotFound
	}
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("select wallet: %w", err)
	}
	if w.Owner, err = domain.IdentityFromBytes(raw); err != nil {
		return wallet.Wallet{}, fmt.Errorf("wallet owner: %w", err)
	}
	w.Tier = compliance.Tier(tier)
	return w, nil
}

func (s *WalletStore) Update(ctx context.Context, w wallet.Wallet) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE hub_wallets
		SET verified = $2, tier = $3, jurisdiction = $4, public_key = $5, metadata = $6
		WHERE owner = $1
	`, w.Owner.Bytes(), w.Verified, int16(w.Tier), w.Jurisdiction, w.PublicKey, w.Metadata)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
