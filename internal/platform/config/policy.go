package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"bridgehub/internal/bridge/models"
	"bridgehub/internal/compliance"
	"bridgehub/internal/confidential"
	"bridgehub/internal/hub"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
)

// Policy is the bridge operating policy loaded from YAML. Fields omitted
// from the file keep their DefaultPolicy values.
type Policy struct {
	RestrictedJurisdictions []string            `yaml:"restricted_jurisdictions"`
	BasicTierCeiling        uint64              `yaml:"basic_tier_ceiling"`
	LargeTransferThreshold  uint64              `yaml:"large_transfer_threshold"`
	Hub                     HubDefaults         `yaml:"hub"`
	Bridge                  models.BridgeConfig `yaml:"bridge"`
	Confidential            confidential.Policy `yaml:"confidential"`
	Wallet                  wallet.Config       `yaml:"wallet"`
}

// HubDefaults seed the hub configuration at initialization.
type HubDefaults struct {
	MinAmount       uint64   `yaml:"min_amount"`
	MaxAmount       uint64   `yaml:"max_amount"`
	SupportedChains []uint64 `yaml:"supported_chains"`
	Paused          bool     `yaml:"paused"`

	BridgeAuthority     *domain.Identity `yaml:"bridge_authority"`
	ComplianceAuthority *domain.Identity `yaml:"compliance_authority"`
	ConfidentialProgram *domain.Identity `yaml:"confidential_program"`

	// ConfirmationMaxAge rejects relay confirmations older than this.
	ConfirmationMaxAge time.Duration `yaml:"confirmation_max_age"`
	// DedupeRelayers counts at most one confirmation per relayer.
	DedupeRelayers bool `yaml:"dedupe_relayers"`
}

// DefaultPolicy mirrors the built-in compliance constants.
func DefaultPolicy() Policy {
	return Policy{
		RestrictedJurisdictions: compliance.DefaultRestrictedJurisdictions(),
		BasicTierCeiling:        compliance.DefaultBasicTierCeiling,
		LargeTransferThreshold:  compliance.DefaultLargeTransferThreshold,
		Hub: HubDefaults{
			MinAmount:          1000,
			MaxAmount:          1_000_000_000,
			SupportedChains:    []uint64{1, 10, 42161},
			ConfirmationMaxAge: time.Hour,
		},
		Bridge: models.BridgeConfig{
			MinConfirmationBlocks: 12,
			MaxConfirmationBlocks: 64,
			RelayerFee:            1000,
			ProtocolFeeBps:        25,
			RequiredSignatures:    2,
		},
		Confidential: confidential.DefaultPolicy(),
		Wallet:       wallet.DefaultConfig(),
	}
}

// LoadPolicy reads the YAML policy at path over DefaultPolicy. An empty
// path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes YAML over DefaultPolicy and validates the result.
// Unknown keys are rejected.
func ParsePolicy(raw []byte) (Policy, error) {
	policy := DefaultPolicy()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate rejects inconsistent thresholds and empty blocklist entries.
func (p Policy) Validate() error {
	for i, j := range p.RestrictedJurisdictions {
		if strings.TrimSpace(j) == "" {
			return fmt.Errorf("restricted_jurisdictions[%d] is empty", i)
		}
	}
	if p.BasicTierCeiling > p.LargeTransferThreshold {
		return fmt.Errorf("basic_tier_ceiling %d exceeds large_transfer_threshold %d", p.BasicTierCeiling, p.LargeTransferThreshold)
	}
	if p.Hub.MinAmount > p.Hub.MaxAmount {
		return fmt.Errorf("hub.min_amount %d exceeds hub.max_amount %d", p.Hub.MinAmount, p.Hub.MaxAmount)
	}
	if p.Bridge.ProtocolFeeBps > 10_000 {
		return errors.New("bridge.protocol_fee_bps must not exceed 10000")
	}
	if p.Confidential.MaxCiphertextSize < 0 {
		return errors.New("confidential.max_ciphertext_size must not be negative")
	}
	return nil
}

// HubConfig builds the configuration submitted by InitializeHub. Admin is
// left unset; the hub assigns it to the initializing caller.
func (p Policy) HubConfig() hub.Config {
	chains := make([]domain.ChainID, 0, len(p.Hub.SupportedChains))
	for _, c := range p.Hub.SupportedChains {
		chains = append(chains, domain.ChainID(c))
	}
	return hub.Config{
		BridgeAuthority:     p.Hub.BridgeAuthority,
		ComplianceAuthority: p.Hub.ComplianceAuthority,
		ConfidentialProgram: p.Hub.ConfidentialProgram,
		SupportedChains:     chains,
		MinAmount:           p.Hub.MinAmount,
		MaxAmount:           p.Hub.MaxAmount,
		Paused:              p.Hub.Paused,
		Bridge:              p.Bridge,
		Confidential:        p.Confidential,
		Wallet:              p.Wallet,
		ConfirmationMaxAge:  p.Hub.ConfirmationMaxAge,
		DedupeRelayers:      p.Hub.DedupeRelayers,
	}
}

// Gate builds the compliance gate described by the policy.
func (p Policy) Gate(opts ...compliance.Option) *compliance.Gate {
	base := []compliance.Option{
		compliance.WithRestrictedJurisdictions(p.RestrictedJurisdictions...),
		compliance.WithBasicTierCeiling(p.BasicTierCeiling),
		compliance.WithLargeTransferThreshold(p.LargeTransferThreshold),
	}
	return compliance.NewGate(append(base, opts...)...)
}
