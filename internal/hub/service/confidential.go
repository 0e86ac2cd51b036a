package service

import (
	"context"
	"fmt"

	"bridgehub/internal/confidential"
	"bridgehub/internal/hub"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/sentinel"
)

// ProcessConfidentialTransaction admits a confidential request addressed to
// the configured program. The structural policy runs first; only then are
// the external proof verifier and, for encrypt_state, the encryptor called.
func (s *Service) ProcessConfidentialTransaction(ctx context.Context, caller domain.Identity, req confidential.Request) (_ hub.ConfidentialResult, err error) {
	ctx, done := s.begin(ctx, "ProcessConfidentialTransaction", caller)
	defer func() { err = done(err) }()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return hub.ConfidentialResult{}, err
	}
	if !domain.Is(cfg.ConfidentialProgram, req.Program) {
		return hub.ConfidentialResult{}, fmt.Errorf("%w: %s", hub.ErrInvalidProgram, req.Program)
	}
	if err := confidential.Validate(req, cfg.Confidential); err != nil {
		s.metrics.IncrementConfidentialRejection(hub.StatusOf(err))
		return hub.ConfidentialResult{}, err
	}

	if len(req.Proof) > 0 {
		if err := confidential.VerifyProof(req.Proof, req.PublicInputs); err != nil {
			s.metrics.IncrementConfidentialRejection(hub.StatusOf(err))
			return hub.ConfidentialResult{}, err
		}
		if s.proofs == nil {
			return hub.ConfidentialResult{}, fmt.Errorf("%w: no proof verifier configured", sentinel.ErrUnavailable)
		}
		if err := s.proofs.VerifyProof(ctx, req.Program, req.Proof, req.PublicInputs); err != nil {
			s.metrics.IncrementConfidentialRejection(hub.StatusOf(hub.ErrInvalidProof))
			return hub.ConfidentialResult{}, fmt.Errorf("%w: %w", hub.ErrInvalidProof, err)
		}
	}

	ciphertext := req.Ciphertext
	if req.Operation == confidential.OpEncryptState {
		ciphertext, err = s.encrypt(ctx, req, cfg.Confidential)
		if err != nil {
			return hub.ConfidentialResult{}, err
		}
	}

	if err := s.emitCompliance(ctx, audit.EventConfidentialProcessed, caller, req.Program.String(), "", "granted", req.Operation.String()); err != nil {
		return hub.ConfidentialResult{}, err
	}
	return hub.ConfidentialResult{
		Program:     req.Program,
		Ciphertext:  ciphertext,
		ProcessedAt: s.now(ctx),
	}, nil
}

func (s *Service) encrypt(ctx context.Context, req confidential.Request, policy confidential.Policy) ([]byte, error) {
	plaintext, err := confidential.CreateEncryptedPayload(req.EncryptedPayload, req.EncryptionPublicKey)
	if err != nil {
		return nil, err
	}
	if s.encryptor == nil {
		return nil, fmt.Errorf("%w: no encryptor configured", sentinel.ErrUnavailable)
	}
	ciphertext, err := s.encryptor.Encrypt(ctx, plaintext, req.EncryptionPublicKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt state: %w", err)
	}
	if len(ciphertext) > policy.MaxCiphertextSize {
		return nil, fmt.Errorf("%w: encrypted state is %d bytes", confidential.ErrCiphertextTooLarge, len(ciphertext))
	}
	return ciphertext, nil
}
