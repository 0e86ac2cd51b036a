package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bridgehub/internal/hub/store/counters"
)

// CounterStore keeps counters in hub_counters. Increments inside a
// Transactor commit with the rest of the operation.
type CounterStore struct {
	base
}

func NewCounterStore(db *sql.DB) *CounterStore {
	return &CounterStore{base{db: db}}
}

func (s *CounterStore) Increment(ctx context.Context, name string, delta uint64) (uint64, error) {
	var total u64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO hub_counters (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = hub_counters.value + EXCLUDED.value
		RETURNING value
	`, name, u64(delta)).Scan(&total)
	if pqCode(err) == checkViolation {
		return 0, fmt.Errorf("%w: %s", counters.ErrOverflow, name)
	}
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return uint64(total), nil
}

// IncrementWithin guards the upsert with the limit, so the row lock taken by
// ON CONFLICT serializes concurrent callers. An expired row restarts from
// zero.
func (s *CounterStore) IncrementWithin(ctx context.Context, name string, delta, limit uint64, ttl time.Duration) (uint64, error) {
	if delta > limit {
		return 0, fmt.Errorf("%w: %s", counters.ErrLimitExceeded, name)
	}
	var total u64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO hub_counters (name, value, expires_at)
		VALUES ($1, $2, CASE WHEN $4::bigint > 0 THEN now() + $4::bigint * interval '1 millisecond' END)
		ON CONFLICT (name) DO UPDATE SET
			value = CASE WHEN hub_counters.expires_at <= now()
				THEN EXCLUDED.value ELSE hub_counters.value + EXCLUDED.value END,
			expires_at = CASE WHEN hub_counters.expires_at <= now()
				THEN EXCLUDED.expires_at ELSE hub_counters.expires_at END
		WHERE hub_counters.expires_at <= now() OR hub_counters.value + EXCLUDED.value <= $3::numeric
		RETURNING value
	`, name, u64(delta), u64(limit), ttl.Milliseconds()).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", counters.ErrLimitExceeded, name)
	}
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return uint64(total), nil
}

// PruneExpired deletes counters past their expiry.
func (s *CounterStore) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM hub_counters WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("prune counters: %w", err)
	}
	return res.RowsAffected()
}

func (s *CounterStore) Get(ctx context.Context, name string) (uint64, error) {
	var v u64
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT value FROM hub_counters
		WHERE name = $1 AND (expires_at IS NULL OR expires_at > now())
	`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	return uint64(v), nil
}
