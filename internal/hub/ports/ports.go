// Package ports declares the external collaborators the hub service calls.
// Adapters live next to the infrastructure they wrap; the service depends
// only on these interfaces.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"

	"bridgehub/internal/bridge/models"
	"bridgehub/internal/compliance/policy"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
)

// SignatureVerifier authenticates that signer produced signature over message.
type SignatureVerifier interface {
	Verify(ctx context.Context, signer domain.Identity, message, signature []byte) error
}

// ProofVerifier verifies a zero-knowledge proof for program. It is only
// called after the structural confidential checks pass.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, program domain.Identity, proof, publicInputs []byte) error
}

// Encryptor is the external encryption engine.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext, publicKey []byte) ([]byte, error)
}

// Notifier delivers encoded envelopes to relayers.
type Notifier interface {
	Publish(ctx context.Context, msg models.CrossChainMessage) error
}

// PolicyEngine evaluates operator deny rules for a transfer.
type PolicyEngine interface {
	Check(ctx context.Context, input policy.Input) error
}

// IDGenerator produces unique transfer and message ids.
type IDGenerator interface {
	NewID() string
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Transactor runs fn so that every store write inside it commits or rolls
// back together.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
