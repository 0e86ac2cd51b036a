// Package wallet holds wallet records and the per-wallet transfer rules.
package wallet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"slices"
	"time"

	"golang.org/x/crypto/sha3"

	"bridgehub/internal/bridge/quorum"
	"bridgehub/internal/compliance"
	"bridgehub/pkg/domain"
)

var (
	ErrTierRequired       = errors.New("compliance tier required for this transfer")
	ErrTierLimitExceeded  = errors.New("wallet tier limit exceeded")
	ErrDailyLimitExceeded = errors.New("daily transfer limit exceeded")
	ErrChainNotAllowed    = errors.New("chain not allowed for wallet")
)

// Wallet is a registered account. Verification fields change only through
// compliance verification.
type Wallet struct {
	Owner        domain.Identity `json:"owner"`
	CreatedAt    time.Time       `json:"created_at"`
	Verified     bool            `json:"verified"`
	Tier         compliance.Tier `json:"tier"`
	Jurisdiction string          `json:"jurisdiction"`
	PublicKey    []byte          `json:"public_key"`
	Metadata     []byte          `json:"metadata,omitempty"`
}

// ApplyRecord copies verification fields from a compliance record.
func (w *Wallet) ApplyRecord(rec compliance.Record) {
	w.Verified = rec.Verified
	w.Tier = rec.Tier
	w.Jurisdiction = rec.Jurisdiction
}

// Config holds per-wallet transfer limits.
type Config struct {
	MinBalance       uint64   `json:"min_balance" yaml:"min_balance"`
	MaxDailyTransfer uint64   `json:"max_daily_transfer" yaml:"max_daily_transfer"`
	AllowedChains    []uint64 `json:"allowed_chains" yaml:"allowed_chains"`
	RequireTier      bool     `json:"require_tier" yaml:"require_tier"`
	Require2FA       bool     `json:"require_2fa" yaml:"require_2fa"`
	EnableAllowlist  bool     `json:"enable_allowlist" yaml:"enable_allowlist"`
	EnableBlocklist  bool     `json:"enable_blocklist" yaml:"enable_blocklist"`
	// BasicTierCeiling caps single transfers from Basic wallets.
	BasicTierCeiling uint64 `json:"basic_tier_ceiling" yaml:"basic_tier_ceiling"`
}

func DefaultConfig() Config {
	return Config{
		MaxDailyTransfer: ^uint64(0),
		AllowedChains:    []uint64{1, 10, 42161, 8453},
		BasicTierCeiling: compliance.DefaultBasicTierCeiling,
	}
}

// ChainAllowed reports whether chain is in AllowedChains. An empty list allows all chains.
func (c Config) ChainAllowed(chain domain.ChainID) bool {
	return len(c.AllowedChains) == 0 || slices.Contains(c.AllowedChains, uint64(chain))
}

// ValidateTransfer applies the tier rules of cfg to a single transfer.
func ValidateTransfer(w Wallet, amount uint64, cfg Config) error {
	if cfg.RequireTier && w.Tier == compliance.TierNone {
		return ErrTierRequired
	}
	if w.Tier == compliance.TierBasic && amount > cfg.BasicTierCeiling {
		return fmt.Errorf("%w: basic wallets may move at most %d", ErrTierLimitExceeded, cfg.BasicTierCeiling)
	}
	return nil
}

// VerifyDailyLimit fails when dailyTotal+amount exceeds the daily maximum.
// The sum is overflow-checked.
func VerifyDailyLimit(dailyTotal, amount uint64, cfg Config) error {
	sum, carry := bits.Add64(dailyTotal, amount, 0)
	if carry != 0 || sum > cfg.MaxDailyTransfer {
		return fmt.Errorf("%w: %d already moved today, limit %d", ErrDailyLimitExceeded, dailyTotal, cfg.MaxDailyTransfer)
	}
	return nil
}

// DeriveChainAddress deterministically derives the address of master on a
// chain: keccak256(chain_id LE || index LE || master).
func DeriveChainAddress(master domain.Identity, chain domain.ChainID, index uint32) domain.Identity {
	var seed [8 + 4 + domain.IdentitySize]byte
	binary.LittleEndian.PutUint64(seed[0:8], uint64(chain))
	binary.LittleEndian.PutUint32(seed[8:12], index)
	copy(seed[12:], master[:])

	h := sha3.NewLegacyKeccak256()
	h.Write(seed[:])
	var out domain.Identity
	h.Sum(out[:0])
	return out
}

// MultiSig is a wallet controlled by a threshold of owners.
type MultiSig struct {
	Owners       []domain.Identity `json:"owners"`
	Threshold    uint8             `json:"threshold"`
	CreatedAt    time.Time         `json:"created_at"`
	TierRequired bool              `json:"tier_required"`
}

// Authorize succeeds when at least Threshold distinct owners are among signers.
func (m MultiSig) Authorize(signers []domain.Identity) error {
	return quorum.CheckSigners(m.Owners, signers, m.Threshold)
}
