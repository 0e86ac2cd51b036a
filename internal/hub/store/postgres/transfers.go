package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bridgehub/internal/bridge/models"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/sentinel"
)

type TransferStore struct {
	base
}

func NewTransferStore(db *sql.DB) *TransferStore {
	return &TransferStore{base{db: db}}
}

const transferColumns = `id, sender, recipient, amount, source_chain, destination_chain, token_address, fee, nonce, created_at, status`

// Create inserts t. A reused id or (sender, nonce) pair fails with
// sentinel.ErrConflict.
func (s *TransferStore) Create(ctx context.Context, t models.CrossChainTransfer) error {
	var token []byte
	if t.TokenAddress != nil {
		token = t.TokenAddress.Bytes()
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO hub_transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		t.ID,
		t.Sender.Bytes(),
		t.Recipient.Bytes(),
		u64(t.Amount),
		u64(t.SourceChain),
		u64(t.DestinationChain),
		token,
		u64(t.Fee),
		u64(t.Nonce),
		t.Timestamp,
		int16(t.Status),
	)
	if pqCode(err) == uniqueViolation {
		return fmt.Errorf("%w: transfer %s or nonce %d", sentinel.ErrConflict, t.ID, t.Nonce)
	}
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (models.CrossChainTransfer, error) {
	var (
		t                                   models.CrossChainTransfer
		sender, recipient, token            []byte
		amount, source, destination, fee, n u64
		status                              int16
	)
	if err := row.Scan(&t.ID, &sender, &recipient, &amount, &source, &destination, &token, &fee, &n, &t.Timestamp, &status); err != nil {
		return models.CrossChainTransfer{}, err
	}
	var err error
	if t.Sender, err = domain.IdentityFromBytes(sender); err != nil {
		return models.CrossChainTransfer{}, fmt.Errorf("transfer %s sender: %w", t.ID, err)
	}
	if t.Recipient, err = domain.IdentityFromBytes(recipient); err != nil {
		return models.CrossChainTransfer{}, fmt.Errorf("transfer %s recipient: %w", t.ID, err)
	}
	if token != nil {
		addr, err := domain.IdentityFromBytes(token)
		if err != nil {
			return models.CrossChainTransfer{}, fmt.Errorf("transfer %s token: %w", t.ID, err)
		}
		t.TokenAddress = &addr
	}
	t.Amount = uint64(amount)
	t.SourceChain = domain.ChainID(source)
	t.DestinationChain = domain.ChainID(destination)
	t.Fee = uint64(fee)
	t.Nonce = uint64(n)
	t.Status = models.TransferStatus(status)
	return t, nil
}

func (s *TransferStore) Get(ctx context.Context, id string) (models.CrossChainTransfer, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+transferColumns+` FROM hub_transfers WHERE id = $1`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CrossChainTransfer{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.CrossChainTransfer{}, fmt.Errorf("select transfer: %w", err)
	}
	return t, nil
}

// UpdateStatus writes t.Status only while the stored status is still from.
func (s *TransferStore) UpdateStatus(ctx context.Context, t models.CrossChainTransfer, from models.TransferStatus) error {
	conn := s.conn(ctx)
	res, err := conn.ExecContext(ctx,
		`UPDATE hub_transfers SET status = $1 WHERE id = $2 AND status = $3`,
		int16(t.Status), t.ID, int16(from),
	)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if n == 1 {
		return nil
	}
	var current int16
	err = conn.QueryRowContext(ctx, `SELECT status FROM hub_transfers WHERE id = $1`, t.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read transfer status: %w", err)
	}
	return fmt.Errorf("%w: status is %s, expected %s", sentinel.ErrConflict, models.TransferStatus(current), from)
}

func (s *TransferStore) ListBySender(ctx context.Context, sender domain.Identity) ([]models.CrossChainTransfer, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+transferColumns+` FROM hub_transfers WHERE sender = $1 ORDER BY nonce, id`,
		sender.Bytes(),
	)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []models.CrossChainTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return out, nil
}
