package models

import (
	"errors"
	"fmt"

	"bridgehub/pkg/domain"
)

// TransferStatus is the lifecycle position of a CrossChainTransfer.
// Values are wire discriminants; do not reorder.
type TransferStatus uint8

const (
	StatusPending TransferStatus = iota
	StatusInitiated
	StatusConfirmed
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s TransferStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInitiated:
		return "initiated"
	case StatusConfirmed:
		return "confirmed"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// IsValid checks if the status is one of the declared values.
func (s TransferStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInitiated, StatusConfirmed, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition out of s is permitted.
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	case StatusPending, StatusInitiated, StatusConfirmed:
		return false
	}
	return false
}

func (s TransferStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid transfer status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *TransferStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTransferStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseTransferStatus parses the lower-case status name.
func ParseTransferStatus(v string) (TransferStatus, error) {
	for s := StatusPending; s <= StatusCancelled; s++ {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown transfer status %q", v)
}

// MessageKind is the kind of a cross-ledger message. Values are wire
// discriminants; do not reorder.
type MessageKind uint8

const (
	KindTokenTransfer MessageKind = iota
	KindTokenReceive
	KindContractCall
	KindContractCallWithToken
)

func (k MessageKind) IsValid() bool {
	switch k {
	case KindTokenTransfer, KindTokenReceive, KindContractCall, KindContractCallWithToken:
		return true
	}
	return false
}

func (k MessageKind) String() string {
	switch k {
	case KindTokenTransfer:
		return "token_transfer"
	case KindTokenReceive:
		return "token_receive"
	case KindContractCall:
		return "contract_call"
	case KindContractCallWithToken:
		return "contract_call_with_token"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// CrossChainTransfer is a transfer between ledgers. It is created on
// initiation and mutated only by the transfer state machine.
type CrossChainTransfer struct {
	ID               string           `json:"id"`
	Sender           domain.Identity  `json:"sender"`
	Recipient        domain.Identity  `json:"recipient"`
	Amount           uint64           `json:"amount"`
	SourceChain      domain.ChainID   `json:"source_chain"`
	DestinationChain domain.ChainID   `json:"destination_chain"`
	TokenAddress     *domain.Identity `json:"token_address,omitempty"`
	Fee              uint64           `json:"fee"`
	Nonce            uint64           `json:"nonce"`
	Timestamp        int64            `json:"timestamp"`
	Status           TransferStatus   `json:"status"`
}

// TokenConfig describes a bridged asset.
type TokenConfig struct {
	Mint        domain.Identity `json:"mint" yaml:"mint"`
	Symbol      string          `json:"symbol" yaml:"symbol"`
	Decimals    uint8           `json:"decimals" yaml:"decimals"`
	MinTransfer uint64          `json:"min_transfer" yaml:"min_transfer"`
	MaxTransfer uint64          `json:"max_transfer" yaml:"max_transfer"`
	Enabled     bool            `json:"enabled" yaml:"enabled"`
}

// BridgeConfig holds relay and fee parameters of the bridge.
type BridgeConfig struct {
	MinConfirmationBlocks uint64 `json:"min_confirmation_blocks" yaml:"min_confirmation_blocks"`
	MaxConfirmationBlocks uint64 `json:"max_confirmation_blocks" yaml:"max_confirmation_blocks"`
	RelayerFee            uint64 `json:"relayer_fee" yaml:"relayer_fee"`
	// ProtocolFeeBps is the protocol fee in basis points of the amount.
	ProtocolFeeBps   uint16        `json:"protocol_fee_bps" yaml:"protocol_fee_bps"`
	EmergencyBreaker bool          `json:"emergency_breaker" yaml:"emergency_breaker"`
	SupportedTokens  []TokenConfig `json:"supported_tokens" yaml:"supported_tokens"`
	// RequiredSignatures is the relay quorum threshold for Confirm.
	RequiredSignatures uint8 `json:"required_signatures" yaml:"required_signatures"`
}

// HasEnabledToken reports whether at least one supported token is enabled.
func (c BridgeConfig) HasEnabledToken() bool {
	for _, t := range c.SupportedTokens {
		if t.Enabled {
			return true
		}
	}
	return false
}

// Token looks up the configuration for mint.
func (c BridgeConfig) Token(mint domain.Identity) (TokenConfig, bool) {
	for _, t := range c.SupportedTokens {
		if t.Mint == mint {
			return t, true
		}
	}
	return TokenConfig{}, false
}

// ErrSignerMismatch is returned when a confirmation's signature and signer
// lists are not index-aligned.
var ErrSignerMismatch = errors.New("signature and signer lists differ in length")

// RelayConfirmation is a relayer's attestation that an event happened on
// another ledger. Signatures[i] was produced by Signers[i].
type RelayConfirmation struct {
	Relayer     domain.Identity   `json:"relayer"`
	TxHash      []byte            `json:"tx_hash"`
	BlockNumber uint64            `json:"block_number"`
	Timestamp   int64             `json:"timestamp"`
	Signatures  [][]byte          `json:"signatures"`
	Signers     []domain.Identity `json:"signers"`
}

// NewRelayConfirmation builds a confirmation, enforcing list alignment.
func NewRelayConfirmation(relayer domain.Identity, txHash []byte, block uint64, ts int64, signatures [][]byte, signers []domain.Identity) (RelayConfirmation, error) {
	rc := RelayConfirmation{
		Relayer:     relayer,
		TxHash:      txHash,
		BlockNumber: block,
		Timestamp:   ts,
		Signatures:  signatures,
		Signers:     signers,
	}
	if err := rc.Validate(); err != nil {
		return RelayConfirmation{}, err
	}
	return rc, nil
}

// Validate checks the structural invariants of a confirmation received over the wire.
func (rc RelayConfirmation) Validate() error {
	if len(rc.Signatures) != len(rc.Signers) {
		return ErrSignerMismatch
	}
	return nil
}

// CrossChainMessage is the wire-level unit sent to relayers.
type CrossChainMessage struct {
	ID               string          `json:"id"`
	SourceChain      domain.ChainID  `json:"source_chain"`
	DestinationChain domain.ChainID  `json:"destination_chain"`
	Sender           domain.Identity `json:"sender"`
	Recipient        domain.Identity `json:"recipient"`
	Kind             MessageKind     `json:"kind"`
	Payload          []byte          `json:"payload"`
	Nonce            uint64          `json:"nonce"`
	Timestamp        int64           `json:"timestamp"`
}
