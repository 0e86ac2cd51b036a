// Package sealbox encrypts confidential state to a recipient's X25519 key
// with NaCl anonymous sealed boxes.
package sealbox

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

const KeySize = 32

type Encryptor struct {
	rand io.Reader
}

func New() *Encryptor {
	return &Encryptor{rand: rand.Reader}
}

func (e *Encryptor) Encrypt(_ context.Context, plaintext, publicKey []byte) ([]byte, error) {
	if len(publicKey) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(publicKey))
	}
	var pk [KeySize]byte
	copy(pk[:], publicKey)
	sealed, err := box.SealAnonymous(nil, plaintext, &pk, e.rand)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return sealed, nil
}
