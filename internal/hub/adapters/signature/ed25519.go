// Package signature verifies caller signatures. An Identity is the caller's
// 32-byte Ed25519 public key.
package signature

import (
	"context"
	"crypto/ed25519"
	"errors"

	"bridgehub/pkg/domain"
)

var ErrInvalidSignature = errors.New("ed25519 signature does not verify")

type Ed25519 struct{}

func NewEd25519() Ed25519 { return Ed25519{} }

func (Ed25519) Verify(_ context.Context, signer domain.Identity, message, signature []byte) error {
	if len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(signer.Bytes()), message, signature) {
		return ErrInvalidSignature
	}
	return nil
}
