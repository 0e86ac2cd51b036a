package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"bridgehub/internal/bridge/models"
	"bridgehub/internal/hub"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func identity(b byte) domain.Identity {
	var id domain.Identity
	id[0] = b
	return id
}

func (s *MemoryStoreSuite) TestConfigStore() {
	store := NewConfigStore()

	_, err := store.Get(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(store.Update(s.ctx, hub.Config{}), sentinel.ErrNotFound)

	authority := identity(2)
	cfg := hub.Config{BridgeAuthority: &authority, SupportedChains: []domain.ChainID{1}}
	s.Require().NoError(store.Create(s.ctx, cfg))
	s.ErrorIs(store.Create(s.ctx, cfg), sentinel.ErrConflict)

	s.Run("stored config is isolated from callers", func() {
		authority[0] = 0xff
		cfg.SupportedChains[0] = 56

		got, err := store.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(identity(2), *got.BridgeAuthority)
		s.Equal([]domain.ChainID{1}, got.SupportedChains)

		got.SupportedChains[0] = 99
		again, err := store.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal([]domain.ChainID{1}, again.SupportedChains)
	})

	s.Run("update replaces", func() {
		s.Require().NoError(store.Update(s.ctx, hub.Config{Paused: true}))
		got, err := store.Get(s.ctx)
		s.Require().NoError(err)
		s.True(got.Paused)
	})
}

func (s *MemoryStoreSuite) TestWalletStore() {
	store := NewWalletStore()
	w := wallet.Wallet{Owner: identity(1), PublicKey: []byte("pk")}

	s.ErrorIs(store.Update(s.ctx, w), sentinel.ErrNotFound)
	s.Require().NoError(store.Create(s.ctx, w))
	s.ErrorIs(store.Create(s.ctx, w), sentinel.ErrConflict)

	w.Verified = true
	s.Require().NoError(store.Update(s.ctx, w))
	got, err := store.Get(s.ctx, w.Owner)
	s.Require().NoError(err)
	s.True(got.Verified)

	_, err = store.Get(s.ctx, identity(9))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) transfer(id string, sender domain.Identity, nonce uint64) models.CrossChainTransfer {
	return models.CrossChainTransfer{
		ID:     id,
		Sender: sender,
		Amount: 100,
		Nonce:  nonce,
		Status: models.StatusInitiated,
	}
}

func (s *MemoryStoreSuite) TestTransferStore() {
	store := NewTransferStore()
	alice, bob := identity(1), identity(2)

	s.Require().NoError(store.Create(s.ctx, s.transfer("t1", alice, 1)))

	s.Run("id and sender nonce are unique", func() {
		s.ErrorIs(store.Create(s.ctx, s.transfer("t1", bob, 9)), sentinel.ErrConflict)
		s.ErrorIs(store.Create(s.ctx, s.transfer("t2", alice, 1)), sentinel.ErrConflict)
		s.NoError(store.Create(s.ctx, s.transfer("t3", bob, 1)))
	})

	s.Run("status update compares the previous status", func() {
		next := s.transfer("t1", alice, 1)
		next.Status = models.StatusConfirmed
		next.Amount = 1

		s.Require().NoError(store.UpdateStatus(s.ctx, next, models.StatusInitiated))
		got, err := store.Get(s.ctx, "t1")
		s.Require().NoError(err)
		s.Equal(models.StatusConfirmed, got.Status)
		s.Equal(uint64(100), got.Amount)

		s.ErrorIs(store.UpdateStatus(s.ctx, next, models.StatusInitiated), sentinel.ErrConflict)
		s.ErrorIs(store.UpdateStatus(s.ctx, s.transfer("missing", alice, 5), models.StatusInitiated), sentinel.ErrNotFound)
	})

	s.Run("list by sender orders by nonce", func() {
		for _, n := range []uint64{5, 3, 4} {
			s.Require().NoError(store.Create(s.ctx, s.transfer(fmt.Sprintf("a%d", n), alice, n)))
		}
		out, err := store.ListBySender(s.ctx, alice)
		s.Require().NoError(err)
		var nonces []uint64
		for _, t := range out {
			nonces = append(nonces, t.Nonce)
		}
		s.Equal([]uint64{1, 3, 4, 5}, nonces)
	})
}
