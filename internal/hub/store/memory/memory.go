// Package memory provides in-process hub stores for tests and single-node
// development.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"bridgehub/internal/bridge/models"
	"bridgehub/internal/hub"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/sentinel"
)

type ConfigStore struct {
	mu  sync.RWMutex
	cfg *hub.Config
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

func (s *ConfigStore) Get(_ context.Context) (hub.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return hub.Config{}, sentinel.ErrNotFound
	}
	return cloneConfig(*s.cfg), nil
}

func (s *ConfigStore) Create(_ context.Context, cfg hub.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil {
		return sentinel.ErrConflict
	}
	c := cloneConfig(cfg)
	s.cfg = &c
	return nil
}

func (s *ConfigStore) Update(_ context.Context, cfg hub.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return sentinel.ErrNotFound
	}
	c := cloneConfig(cfg)
	s.cfg = &c
	return nil
}

func cloneIdentity(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// cloneConfig copies the slices and pointers of cfg so callers cannot
// mutate stored state.
func cloneConfig(cfg hub.Config) hub.Config {
	cfg.Admin = cloneIdentity(cfg.Admin)
	cfg.BridgeAuthority = cloneIdentity(cfg.BridgeAuthority)
	cfg.ComplianceAuthority = cloneIdentity(cfg.ComplianceAuthority)
	cfg.ConfidentialProgram = cloneIdentity(cfg.ConfidentialProgram)
	cfg.SupportedChains = slices.Clone(cfg.SupportedChains)
	cfg.Bridge.SupportedTokens = slices.Clone(cfg.Bridge.SupportedTokens)
	cfg.Wallet.AllowedChains = slices.Clone(cfg.Wallet.AllowedChains)
	return cfg
}

type WalletStore struct {
	mu      sync.RWMutex
	wallets map[domain.Identity]wallet.Wallet
}

func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[domain.Identity]wallet.Wallet)}
}

func (s *WalletStore) Create(_ context.Context, w wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.Owner]; ok {
		return sentinel.ErrConflict
	}
	s.wallets[w.Owner] = w
	return nil
}

func (s *WalletStore) Get(_ context.Context, owner domain.Identity) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[owner]
	if !ok {
		return wallet.Wallet{}, sentinel.ErrNotFound
	}
	return w, nil
}

func (s *WalletStore) Update(_ context.Context, w wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.Owner]; !ok {
		return sentinel.ErrNotFound
	}
	s.wallets[w.Owner] = w
	return nil
}

type nonceKey struct {
	sender domain.Identity
	nonce  uint64
}

type TransferStore struct {
	mu        sync.RWMutex
	transfers map[string]models.CrossChainTransfer
	nonces    map[nonceKey]string
}

func NewTransferStore() *TransferStore {
	return &TransferStore{
		transfers: make(map[string]models.CrossChainTransfer),
		nonces:    make(map[nonceKey]string),
	}
}

func (s *TransferStore) Create(_ context.Context, t models.CrossChainTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[t.ID]; ok {
		return fmt.Errorf("%w: transfer %s exists", sentinel.ErrConflict, t.ID)
	}
	key := nonceKey{sender: t.Sender, nonce: t.Nonce}
	if _, ok := s.nonces[key]; ok {
		return fmt.Errorf("%w: nonce %d used", sentinel.ErrConflict, t.Nonce)
	}
	s.transfers[t.ID] = t
	s.nonces[key] = t.ID
	return nil
}

func (s *TransferStore) Get(_ context.Context, id string) (models.CrossChainTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return models.CrossChainTransfer{}, sentinel.ErrNotFound
	}
	return t, nil
}

func (s *TransferStore) UpdateStatus(_ context.Context, t models.CrossChainTransfer, from models.TransferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.transfers[t.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != from {
		return fmt.Errorf("%w: status is %s, expected %s", sentinel.ErrConflict, stored.Status, from)
	}
	stored.Status = t.Status
	s.transfers[t.ID] = stored
	return nil
}

// ListBySender returns the sender's transfers ordered by nonce.
func (s *TransferStore) ListBySender(_ context.Context, sender domain.Identity) ([]models.CrossChainTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CrossChainTransfer
	for _, t := range s.transfers {
		if t.Sender == sender {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.CrossChainTransfer) int {
		if c := cmp.Compare(a.Nonce, b.Nonce); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
