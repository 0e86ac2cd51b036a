package service

import (
	"bytes"
	"context"
	"fmt"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/compliance"
	"bridgehub/internal/hub"
	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
	"bridgehub/pkg/platform/sentinel"
)

// CreateQualifiedSignature records a qualified signature over the request
// data. The certificate must pass the qualified certificate checks. A
// request without a timestamp is stamped with the current time.
func (s *Service) CreateQualifiedSignature(ctx context.Context, caller domain.Identity, req hub.QualifiedSignatureRequest) (_ compliance.QualifiedSignature, err error) {
	ctx, done := s.begin(ctx, "CreateQualifiedSignature", caller)
	defer func() { err = done(err) }()

	switch {
	case len(req.DataToSign) == 0:
		return compliance.QualifiedSignature{}, fmt.Errorf("%w: data to sign is required", hub.ErrInvalidRequest)
	case len(req.Certificate) == 0:
		return compliance.QualifiedSignature{}, fmt.Errorf("%w: certificate is required", hub.ErrInvalidRequest)
	case len(req.Signature) == 0:
		return compliance.QualifiedSignature{}, fmt.Errorf("%w: signature is required", hub.ErrInvalidRequest)
	}
	if err := s.gate.CheckCertificate(req.CertificateInfo); err != nil {
		s.metrics.IncrementComplianceRejection(hub.StatusOf(err))
		return compliance.QualifiedSignature{}, err
	}

	ts := s.now(ctx).Unix()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	sig := compliance.QualifiedSignature{
		Signature:   req.Signature,
		Certificate: req.CertificateInfo,
		SignedData:  req.DataToSign,
		Timestamp:   &ts,
		Algorithm:   req.Algorithm,
		SignerRole:  req.SignerRole,
	}
	if err := s.emitCompliance(ctx, audit.EventQualifiedSigCreated, caller, req.CertificateInfo.Subject, "", "granted", ""); err != nil {
		return compliance.QualifiedSignature{}, err
	}
	return sig, nil
}

// VerifyQualifiedSignature checks the certificate and timestamp of sig, that
// it covers data, and then the signature itself. The signer is the identity
// held in the certificate's public key hash.
func (s *Service) VerifyQualifiedSignature(ctx context.Context, caller domain.Identity, sig compliance.QualifiedSignature, data []byte) (err error) {
	ctx, done := s.begin(ctx, "VerifyQualifiedSignature", caller)
	defer func() { err = done(err) }()

	if err := s.gate.VerifyQualifiedSignature(sig, data); err != nil {
		s.metrics.IncrementComplianceRejection(hub.StatusOf(err))
		return err
	}
	if len(data) > 0 && !bytes.Equal(sig.SignedData, data) {
		return fmt.Errorf("%w: signature does not cover the supplied data", hub.ErrInvalidSignature)
	}
	signer, err := domain.IdentityFromBytes(sig.Certificate.PublicKeyHash)
	if err != nil {
		return fmt.Errorf("%w: certificate key: %w", hub.ErrInvalidRequest, err)
	}
	if s.signatures == nil {
		return fmt.Errorf("%w: no signature verifier configured", sentinel.ErrUnavailable)
	}
	if err := s.signatures.Verify(ctx, signer, sig.SignedData, sig.Signature); err != nil {
		return fmt.Errorf("%w: %w", hub.ErrInvalidSignature, err)
	}
	return s.emitCompliance(ctx, audit.EventQualifiedSigVerified, caller, sig.Certificate.Subject, "", "granted", "")
}

// CreateTimestamp digests the request data and binds the digest to the
// current time. The token is the canonical encoding of the algorithm,
// digest and time. A qualified timestamp requires a valid TSA certificate.
func (s *Service) CreateTimestamp(ctx context.Context, caller domain.Identity, req compliance.TimestampData) (_ compliance.QualifiedTimestamp, err error) {
	ctx, done := s.begin(ctx, "CreateTimestamp", caller)
	defer func() { err = done(err) }()

	if len(req.Data) == 0 {
		return compliance.QualifiedTimestamp{}, fmt.Errorf("%w: data to timestamp is required", hub.ErrInvalidRequest)
	}
	alg := req.HashAlgorithm
	if alg == "" {
		alg = compliance.HashSHA256
	}
	digest, err := compliance.HashData(alg, req.Data)
	if err != nil {
		return compliance.QualifiedTimestamp{}, err
	}
	if req.RequireQTS {
		if req.TSACertificate == nil {
			return compliance.QualifiedTimestamp{}, fmt.Errorf("%w: qualified timestamp requires a TSA certificate", hub.ErrInvalidRequest)
		}
		if err := s.gate.CheckCertificate(*req.TSACertificate); err != nil {
			return compliance.QualifiedTimestamp{}, err
		}
	}

	at := s.now(ctx).Unix()
	e := envelope.NewEncoder(4 + len(alg) + 4 + len(digest) + 8)
	e.String(alg)
	e.Var(digest)
	e.I64(at)

	ts := compliance.QualifiedTimestamp{
		Token:          e.Bytes(),
		TSACertificate: req.TSACertificate,
		Time:           at,
		HashAlgorithm:  alg,
		HashValue:      digest,
	}
	if err := s.emitCompliance(ctx, audit.EventTimestampCreated, caller, alg, "", "granted", ""); err != nil {
		return compliance.QualifiedTimestamp{}, err
	}
	return ts, nil
}
