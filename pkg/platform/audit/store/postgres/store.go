package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bridgehub/pkg/domain"
	audit "bridgehub/pkg/platform/audit"
	txcontext "bridgehub/pkg/platform/tx"
)

// Schema creates the audit_events table. Applied by the server on startup.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id                 TEXT PRIMARY KEY,
	category           TEXT NOT NULL,
	occurred_at        TIMESTAMPTZ NOT NULL,
	actor              BYTEA NOT NULL,
	subject            TEXT NOT NULL DEFAULT '',
	action             TEXT NOT NULL,
	decision           TEXT NOT NULL DEFAULT '',
	reason             TEXT NOT NULL DEFAULT '',
	request_id         TEXT NOT NULL DEFAULT '',
	transfer_id        TEXT NOT NULL DEFAULT '',
	signature_required BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS audit_events_actor_idx ON audit_events (actor, occurred_at);
`

// Store implements audit.Store on PostgreSQL. Appends join the caller's
// transaction when one is present in the context.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts the event. Duplicate IDs are ignored so redelivery is idempotent.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, actor, subject, action,
			decision, reason, request_id, transfer_id, signature_required
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.Actor.Bytes(),
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.TransferID,
		event.SignatureRequired,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByActor returns events for actor, oldest first.
func (s *Store) ListByActor(ctx context.Context, actor domain.Identity) ([]audit.Event, error) {
	query := `
		SELECT id, category, occurred_at, actor, subject, action,
			   decision, reason, request_id, transfer_id, signature_required
		FROM audit_events
		WHERE actor = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, actor.Bytes())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
			rawActor []byte
		)
		if err := rows.Scan(&e.ID, &category, &e.Timestamp, &rawActor, &e.Subject, &e.Action,
			&e.Decision, &e.Reason, &e.RequestID, &e.TransferID, &e.SignatureRequired); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		copy(e.Actor[:], rawActor)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
