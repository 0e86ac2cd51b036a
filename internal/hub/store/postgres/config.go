package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bridgehub/internal/hub"
	"bridgehub/pkg/platform/sentinel"
)

// ConfigStore keeps the single hub configuration row as JSON.
type ConfigStore struct {
	base
}

func NewConfigStore(db *sql.DB) *ConfigStore {
	return &ConfigStore{base{db: db}}
}

func (s *ConfigStore) Get(ctx context.Context) (hub.Config, error) {
	var raw []byte
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT config FROM hub_config WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.Config{}, sentinel.ErrNotFound
	}
	if err != nil {
		return hub.Config{}, fmt.Errorf("select hub config: %w", err)
	}
	var cfg hub.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return hub.Config{}, fmt.Errorf("decode hub config: %w", err)
	}
	return cfg, nil
}

func (s *ConfigStore) Create(ctx context.Context, cfg hub.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode hub config: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO hub_config (id, config) VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING
	`, raw)
	if err != nil {
		return fmt.Errorf("insert hub config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert hub config: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *ConfigStore) Update(ctx context.Context, cfg hub.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode hub config: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, `UPDATE hub_config SET config = $1, updated_at = now() WHERE id = 1`, raw)
	if err != nil {
		return fmt.Errorf("update hub config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update hub config: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
