package confidential

import (
	"errors"
	"fmt"
)

// Operation is the confidential computation requested.
type Operation uint8

const (
	OpEncryptState Operation = iota
	OpDecryptState
	OpConfidentialTransfer
	OpEncryptedSwap
	OpEncryptedStake
	OpEncryptedVote
)

func (o Operation) String() string {
	switch o {
	case OpEncryptState:
		return "encrypt_state"
	case OpDecryptState:
		return "decrypt_state"
	case OpConfidentialTransfer:
		return "confidential_transfer"
	case OpEncryptedSwap:
		return "encrypted_swap"
	case OpEncryptedStake:
		return "encrypted_stake"
	case OpEncryptedVote:
		return "encrypted_vote"
	}
	return fmt.Sprintf("operation(%d)", uint8(o))
}

func (o Operation) MarshalText() ([]byte, error) {
	if o > OpEncryptedVote {
		return nil, fmt.Errorf("invalid confidential operation %d", uint8(o))
	}
	return []byte(o.String()), nil
}

func (o *Operation) UnmarshalText(text []byte) error {
	for op := OpEncryptState; op <= OpEncryptedVote; op++ {
		if op.String() == string(text) {
			*o = op
			return nil
		}
	}
	return fmt.Errorf("unknown confidential operation %q", string(text))
}

var ErrMissingCommitment = errors.New("missing commitment")

// EncryptedWalletState is a wallet balance held under encryption.
type EncryptedWalletState struct {
	EncryptedBalance     []byte `json:"encrypted_balance"`
	EncryptedNonce       []byte `json:"encrypted_nonce"`
	CiphertextCommitment []byte `json:"ciphertext_commitment"`
	EncryptionPublicKey  []byte `json:"encryption_public_key"`
}

// Validate checks that every component is present and the balance fits policy.
func (s EncryptedWalletState) Validate(policy Policy) error {
	switch {
	case len(s.EncryptedBalance) == 0:
		return fmt.Errorf("%w: encrypted balance", ErrMissingCommitment)
	case len(s.EncryptedNonce) == 0:
		return fmt.Errorf("%w: encrypted nonce", ErrMissingCommitment)
	case len(s.CiphertextCommitment) == 0:
		return fmt.Errorf("%w: ciphertext commitment", ErrMissingCommitment)
	case len(s.EncryptionPublicKey) == 0:
		return fmt.Errorf("%w: encryption public key", ErrEmptyInput)
	}
	if len(s.EncryptedBalance) > policy.MaxCiphertextSize {
		return fmt.Errorf("%w: balance %d > %d bytes", ErrCiphertextTooLarge, len(s.EncryptedBalance), policy.MaxCiphertextSize)
	}
	return nil
}

// TransferProof accompanies a confidential transfer.
type TransferProof struct {
	ZeroBalanceProof    []byte `json:"zero_balance_proof"`
	RangeProof          []byte `json:"range_proof"`
	Ciphertext          []byte `json:"ciphertext"`
	PublicEncryptionKey []byte `json:"public_encryption_key"`
}

func (p TransferProof) Validate(policy Policy) error {
	switch {
	case len(p.ZeroBalanceProof) == 0:
		return fmt.Errorf("%w: zero balance proof", ErrProofRequired)
	case len(p.RangeProof) == 0:
		return fmt.Errorf("%w: range proof", ErrProofRequired)
	case len(p.PublicEncryptionKey) == 0:
		return fmt.Errorf("%w: public encryption key", ErrEmptyInput)
	}
	if len(p.Ciphertext) > policy.MaxCiphertextSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrCiphertextTooLarge, len(p.Ciphertext), policy.MaxCiphertextSize)
	}
	return nil
}
