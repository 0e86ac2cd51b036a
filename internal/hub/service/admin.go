package service

import (
	"context"
	"errors"
	"fmt"

	"bridgehub/internal/hub"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/sentinel"
)

// InitializeHub stores the first hub configuration with caller as admin.
func (s *Service) InitializeHub(ctx context.Context, caller domain.Identity, cfg hub.Config) (_ hub.Config, err error) {
	ctx, done := s.begin(ctx, "InitializeHub", caller)
	defer func() { err = done(err) }()

	admin := caller
	cfg.Admin = &admin
	if err := cfg.Validate(); err != nil {
		return hub.Config{}, err
	}
	if err := s.configs.Create(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return hub.Config{}, hub.ErrAlreadyInitialized
		}
		return hub.Config{}, fmt.Errorf("create hub config: %w", err)
	}

	s.logAudit(ctx, audit.EventHubInitialized, caller, "hub", "", "granted", "")
	return cfg, nil
}

// UpdateConfig replaces the hub configuration. Only the admin may update,
// and the admin itself cannot be changed.
func (s *Service) UpdateConfig(ctx context.Context, caller domain.Identity, cfg hub.Config) (_ hub.Config, err error) {
	ctx, done := s.begin(ctx, "UpdateConfig", caller)
	defer func() { err = done(err) }()

	current, err := s.loadConfig(ctx)
	if err != nil {
		return hub.Config{}, err
	}
	if err := s.requireRole(ctx, current.Admin, "admin", caller); err != nil {
		return hub.Config{}, err
	}
	cfg.Admin = current.Admin
	if err := cfg.Validate(); err != nil {
		return hub.Config{}, err
	}
	if err := s.configs.Update(ctx, cfg); err != nil {
		return hub.Config{}, fmt.Errorf("update hub config: %w", err)
	}

	s.logAudit(ctx, audit.EventHubConfigUpdated, caller, "hub", "", "granted", "")
	return cfg, nil
}

// Stats returns a snapshot of the aggregate counters.
func (s *Service) Stats(ctx context.Context) (hub.Stats, error) {
	var stats hub.Stats
	for _, c := range []struct {
		name string
		dst  *uint64
	}{
		{hub.CounterTotalVolume, &stats.TotalVolume},
		{hub.CounterTotalTransactions, &stats.TotalTransactions},
		{hub.CounterRegisteredWallets, &stats.RegisteredWallets},
		{hub.CounterComplianceRecords, &stats.ComplianceRecords},
	} {
		v, err := s.counters.Get(ctx, c.name)
		if err != nil {
			return hub.Stats{}, hub.Translate(fmt.Errorf("read counter %s: %w", c.name, err))
		}
		*c.dst = v
	}
	return stats, nil
}

// increment bumps a counter. Counter failures after state was written are
// logged and do not fail the operation.
func (s *Service) increment(ctx context.Context, name string, delta uint64) uint64 {
	v, err := s.counters.Increment(ctx, name, delta)
	if err != nil {
		s.logger.ErrorContext(ctx, "counter increment failed", "counter", name, "delta", delta, "error", err)
	}
	return v
}
