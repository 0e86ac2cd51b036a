package hub

import (
	"context"
	"time"

	"bridgehub/internal/bridge/models"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
)

// ConfigStore persists the single hub configuration.
// Get returns sentinel.ErrNotFound before initialization; Create returns
// sentinel.ErrConflict when a configuration already exists.
type ConfigStore interface {
	Get(ctx context.Context) (Config, error)
	Create(ctx context.Context, cfg Config) error
	Update(ctx context.Context, cfg Config) error
}

// WalletStore persists wallets keyed by owner.
// Create returns sentinel.ErrConflict for an existing owner; Get and Update
// return sentinel.ErrNotFound for an unknown one.
type WalletStore interface {
	Create(ctx context.Context, w wallet.Wallet) error
	Get(ctx context.Context, owner domain.Identity) (wallet.Wallet, error)
	Update(ctx context.Context, w wallet.Wallet) error
}

// TransferStore persists transfers keyed by id, with (sender, nonce) unique.
type TransferStore interface {
	// Create returns sentinel.ErrConflict when the id or the sender's nonce is taken.
	Create(ctx context.Context, t models.CrossChainTransfer) error
	Get(ctx context.Context, id string) (models.CrossChainTransfer, error)
	// UpdateStatus writes t.Status only if the stored status still equals
	// from, returning sentinel.ErrConflict otherwise. This gives a single
	// writer per transfer without holding locks across a service call.
	UpdateStatus(ctx context.Context, t models.CrossChainTransfer, from models.TransferStatus) error
	ListBySender(ctx context.Context, sender domain.Identity) ([]models.CrossChainTransfer, error)
}

// CounterStore holds monotonically increasing aggregate counters.
// Unknown counters read as zero.
type CounterStore interface {
	Increment(ctx context.Context, name string, delta uint64) (uint64, error)
	Get(ctx context.Context, name string) (uint64, error)
	// IncrementWithin adds delta only if the result stays at or below limit,
	// as one atomic step shared by every hub instance. Otherwise it returns
	// counters.ErrLimitExceeded and leaves the counter unchanged. A counter
	// created by the call expires after ttl; zero never expires.
	IncrementWithin(ctx context.Context, name string, delta, limit uint64, ttl time.Duration) (uint64, error)
}
