package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	txcontext "bridgehub/pkg/platform/tx"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type base struct {
	db *sql.DB
}

func (b base) conn(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return b.db
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// Transactor runs hub operations in a database transaction.
type Transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, t.db, fn)
}

// u64 moves a uint64 through a NUMERIC(20,0) column. database/sql rejects
// uint64 arguments with the high bit set, so the value travels as decimal
// text.
type u64 uint64

func (v u64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(v), 10), nil
}

func (v *u64) Scan(src any) error {
	var raw string
	switch s := src.(type) {
	case []byte:
		raw = string(s)
	case string:
		raw = s
	case int64:
		if s < 0 {
			return fmt.Errorf("negative value %d for unsigned column", s)
		}
		*v = u64(s)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into unsigned column", src)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse unsigned column: %w", err)
	}
	*v = u64(n)
	return nil
}
