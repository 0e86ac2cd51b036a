// Package confidential decides whether encrypted or proved transaction
// material is structurally acceptable before it reaches the external proof
// verifier or encryption engine. Nothing here is a cryptographic check.
package confidential

import (
	"errors"
	"fmt"

	"bridgehub/pkg/domain"
)

var (
	ErrPayloadRequired    = errors.New("encrypted payload required")
	ErrProofRequired      = errors.New("zero-knowledge proof required")
	ErrCiphertextTooLarge = errors.New("ciphertext exceeds maximum size")
	ErrEmptyInput         = errors.New("input must not be empty")
)

// DefaultMaxCiphertextSize bounds ciphertext length when no policy is configured.
const DefaultMaxCiphertextSize = 1024

// Policy is the admission policy for confidential requests.
type Policy struct {
	EncryptionRequired bool `json:"encryption_required" yaml:"encryption_required"`
	ProofRequired      bool `json:"proof_required" yaml:"proof_required"`
	MaxCiphertextSize  int  `json:"max_ciphertext_size" yaml:"max_ciphertext_size"`
}

// DefaultPolicy requires both encryption and proof.
func DefaultPolicy() Policy {
	return Policy{
		EncryptionRequired: true,
		ProofRequired:      true,
		MaxCiphertextSize:  DefaultMaxCiphertextSize,
	}
}

// Request is a confidential transaction submitted for processing.
type Request struct {
	EncryptedPayload    []byte          `json:"encrypted_payload"`
	Ciphertext          []byte          `json:"ciphertext"`
	Proof               []byte          `json:"proof"`
	PublicInputs        []byte          `json:"public_inputs"`
	Program             domain.Identity `json:"program"`
	EncryptionPublicKey []byte          `json:"encryption_public_key"`
	Operation           Operation       `json:"operation"`
}

// Validate applies policy to req. Checks run in order: payload, proof,
// ciphertext size.
func Validate(req Request, policy Policy) error {
	if policy.EncryptionRequired && len(req.EncryptedPayload) == 0 {
		return ErrPayloadRequired
	}
	if policy.ProofRequired && len(req.Proof) == 0 {
		return ErrProofRequired
	}
	if len(req.Ciphertext) > policy.MaxCiphertextSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrCiphertextTooLarge, len(req.Ciphertext), policy.MaxCiphertextSize)
	}
	return nil
}

// CreateEncryptedPayload checks that plaintext and key are present and
// returns the plaintext for the external engine to encrypt.
func CreateEncryptedPayload(plaintext, publicKey []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: plaintext", ErrEmptyInput)
	}
	if len(publicKey) == 0 {
		return nil, fmt.Errorf("%w: public key", ErrEmptyInput)
	}
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}

// VerifyProof checks that proof and public inputs are present. The proof
// itself is verified by the external proof system.
func VerifyProof(proof, publicInputs []byte) error {
	if len(proof) == 0 {
		return fmt.Errorf("%w: proof", ErrEmptyInput)
	}
	if len(publicInputs) == 0 {
		return fmt.Errorf("%w: public inputs", ErrEmptyInput)
	}
	return nil
}
