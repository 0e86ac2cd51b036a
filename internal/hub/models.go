// Package hub holds the hosted state of the bridge: the hub configuration,
// the store contracts the service persists through, and the mapping of
// domain errors to external status names.
package hub

import (
	"fmt"
	"slices"
	"time"

	"bridgehub/internal/bridge/fee"
	"bridgehub/internal/bridge/models"
	"bridgehub/internal/bridge/transfer"
	"bridgehub/internal/confidential"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
)

// Config is the hub-wide configuration. Authorities left nil are unset:
// nobody holds that role until UpdateConfig assigns one.
type Config struct {
	Admin               *domain.Identity `json:"admin,omitempty"`
	BridgeAuthority     *domain.Identity `json:"bridge_authority,omitempty"`
	ComplianceAuthority *domain.Identity `json:"compliance_authority,omitempty"`
	ConfidentialProgram *domain.Identity `json:"confidential_program,omitempty"`

	SupportedChains []domain.ChainID `json:"supported_chains"`
	MinAmount       uint64           `json:"min_amount"`
	MaxAmount       uint64           `json:"max_amount"`
	Paused          bool             `json:"paused"`

	Bridge       models.BridgeConfig `json:"bridge"`
	Confidential confidential.Policy `json:"confidential"`
	Wallet       wallet.Config       `json:"wallet"`

	// ConfirmationMaxAge bounds how old a relay confirmation may be when
	// submitted. Zero disables the check.
	ConfirmationMaxAge time.Duration `json:"confirmation_max_age"`
	// DedupeRelayers counts at most one confirmation per relayer.
	DedupeRelayers bool `json:"dedupe_relayers"`
}

// Validate checks the internal consistency of a configuration.
func (c Config) Validate() error {
	if c.MinAmount > c.MaxAmount {
		return fmt.Errorf("%w: min amount %d above max amount %d", ErrInvalidConfig, c.MinAmount, c.MaxAmount)
	}
	if c.Bridge.ProtocolFeeBps > fee.BasisPointsDenominator {
		return fmt.Errorf("%w: protocol fee %d bps above 100%%", ErrInvalidConfig, c.Bridge.ProtocolFeeBps)
	}
	if c.Bridge.RequiredSignatures == 0 {
		return fmt.Errorf("%w: required signatures must be at least 1", ErrInvalidConfig)
	}
	if c.BridgeAuthority == nil || c.BridgeAuthority.IsZero() {
		return fmt.Errorf("%w: bridge authority is required", ErrInvalidConfig)
	}
	if c.ComplianceAuthority == nil || c.ComplianceAuthority.IsZero() {
		return fmt.Errorf("%w: compliance authority is required", ErrInvalidConfig)
	}
	if len(c.SupportedChains) == 0 {
		return fmt.Errorf("%w: at least one supported chain is required", ErrInvalidConfig)
	}
	if c.Confidential.MaxCiphertextSize < 0 {
		return fmt.Errorf("%w: max ciphertext size cannot be negative", ErrInvalidConfig)
	}
	if c.ConfirmationMaxAge < 0 {
		return fmt.Errorf("%w: confirmation max age cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// SupportsChain reports whether chain is one of the supported ledgers.
func (c Config) SupportsChain(chain domain.ChainID) bool {
	return slices.Contains(c.SupportedChains, chain)
}

// Limits projects the configuration onto the transfer machine's admission limits.
func (c Config) Limits() transfer.Limits {
	return transfer.Limits{
		MinAmount: c.MinAmount,
		MaxAmount: c.MaxAmount,
		Paused:    c.Paused,
		Authority: c.BridgeAuthority,
	}
}

// Aggregate counter names.
const (
	CounterTotalVolume       = "total_volume"
	CounterTotalTransactions = "total_transactions"
	CounterRegisteredWallets = "registered_wallets"
	CounterComplianceRecords = "compliance_records"
)

// DailyCounter names the per-owner volume counter of the UTC day containing at.
func DailyCounter(owner domain.Identity, at time.Time) string {
	return "daily:" + owner.String() + ":" + at.UTC().Format(time.DateOnly)
}

// Stats is a snapshot of the aggregate counters.
type Stats struct {
	TotalVolume       uint64 `json:"total_volume"`
	TotalTransactions uint64 `json:"total_transactions"`
	RegisteredWallets uint64 `json:"registered_wallets"`
	ComplianceRecords uint64 `json:"compliance_records"`
}
