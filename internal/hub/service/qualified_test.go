package service

import (
	"crypto/sha256"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/compliance"
	"bridgehub/internal/confidential"
	"bridgehub/internal/hub"
	"bridgehub/pkg/platform/audit"
)

func (s *ServiceSuite) certificate() compliance.QualifiedCertificate {
	signer := ident(40)
	return compliance.QualifiedCertificate{
		Subject:       "CN=Alice Example",
		Issuer:        "CN=Qualified CA",
		SerialNumber:  []byte{0x01, 0x02},
		NotBefore:     s.now.Add(-24 * time.Hour).Unix(),
		NotAfter:      s.now.Add(24 * time.Hour).Unix(),
		PublicKeyHash: signer.Bytes(),
		Kind:          compliance.KindQualifiedSignature,
		Country:       "DE",
		QSCD:          true,
	}
}

func (s *ServiceSuite) signatureRequest() hub.QualifiedSignatureRequest {
	return hub.QualifiedSignatureRequest{
		QualifiedSignatureData: compliance.QualifiedSignatureData{
			DataToSign:  []byte("contract v1"),
			Certificate: []byte("DER"),
			Signature:   []byte("sig"),
		},
		CertificateInfo: s.certificate(),
		Algorithm:       "Ed25519",
		SignerRole:      "director",
	}
}

// =============================================================================
// Qualified Signature Tests
// =============================================================================

func (s *ServiceSuite) TestCreateQualifiedSignature() {
	s.Run("stamps the current time", func() {
		sig, err := s.service.CreateQualifiedSignature(s.ctx, alice, s.signatureRequest())
		s.Require().NoError(err)
		s.Require().NotNil(sig.Timestamp)
		s.Equal(s.now.Unix(), *sig.Timestamp)
		s.Equal("director", sig.SignerRole)
		s.Equal([]byte("contract v1"), sig.SignedData)
		s.Contains(s.complianceActions(), string(audit.EventQualifiedSigCreated))
	})

	s.Run("keeps a supplied timestamp", func() {
		req := s.signatureRequest()
		ts := s.now.Add(-time.Minute).Unix()
		req.Timestamp = &ts
		sig, err := s.service.CreateQualifiedSignature(s.ctx, alice, req)
		s.Require().NoError(err)
		s.Equal(ts, *sig.Timestamp)
	})

	s.Run("certificate must come from a qualified device", func() {
		req := s.signatureRequest()
		req.CertificateInfo.QSCD = false
		_, err := s.service.CreateQualifiedSignature(s.ctx, alice, req)
		s.ErrorIs(err, compliance.ErrNotQscd)
		s.Equal("NOT_QSCD", hub.StatusOf(err))
	})

	s.Run("expired certificate", func() {
		req := s.signatureRequest()
		req.CertificateInfo.NotAfter = s.now.Add(-time.Hour).Unix()
		_, err := s.service.CreateQualifiedSignature(s.ctx, alice, req)
		s.ErrorIs(err, compliance.ErrExpired)
	})

	s.Run("data is required", func() {
		req := s.signatureRequest()
		req.DataToSign = nil
		_, err := s.service.CreateQualifiedSignature(s.ctx, alice, req)
		s.ErrorIs(err, hub.ErrInvalidRequest)
	})
}

func (s *ServiceSuite) TestVerifyQualifiedSignature() {
	sig, err := s.service.CreateQualifiedSignature(s.ctx, alice, s.signatureRequest())
	s.Require().NoError(err)

	s.Run("verifies against the certificate key", func() {
		s.verifier.EXPECT().Verify(gomock.Any(), ident(40), sig.SignedData, sig.Signature).Return(nil)
		s.NoError(s.service.VerifyQualifiedSignature(s.ctx, bob, sig, []byte("contract v1")))
		s.Contains(s.complianceActions(), string(audit.EventQualifiedSigVerified))
	})

	s.Run("signature must cover the data", func() {
		err := s.service.VerifyQualifiedSignature(s.ctx, bob, sig, []byte("contract v2"))
		s.ErrorIs(err, hub.ErrInvalidSignature)
	})

	s.Run("timestamp is required", func() {
		unstamped := sig
		unstamped.Timestamp = nil
		err := s.service.VerifyQualifiedSignature(s.ctx, bob, unstamped, nil)
		s.ErrorIs(err, compliance.ErrMissingTimestamp)
	})

	s.Run("verifier rejection", func() {
		s.verifier.EXPECT().Verify(gomock.Any(), ident(40), gomock.Any(), gomock.Any()).Return(errors.New("bad"))
		err := s.service.VerifyQualifiedSignature(s.ctx, bob, sig, nil)
		s.ErrorIs(err, hub.ErrInvalidSignature)
	})

	s.Run("malformed certificate key", func() {
		bad := sig
		bad.Certificate.PublicKeyHash = []byte{0x01}
		err := s.service.VerifyQualifiedSignature(s.ctx, bob, bad, nil)
		s.ErrorIs(err, hub.ErrInvalidRequest)
	})
}

func (s *ServiceSuite) TestCreateTimestamp() {
	s.Run("defaults to SHA-256", func() {
		data := []byte("document")
		ts, err := s.service.CreateTimestamp(s.ctx, alice, compliance.TimestampData{Data: data})
		s.Require().NoError(err)

		want := sha256.Sum256(data)
		s.Equal(compliance.HashSHA256, ts.HashAlgorithm)
		s.Equal(want[:], ts.HashValue)
		s.Equal(s.now.Unix(), ts.Time)

		d := envelope.NewDecoder(ts.Token)
		s.Equal(compliance.HashSHA256, d.String("algorithm"))
		s.Equal(want[:], d.Var("digest"))
		s.Equal(s.now.Unix(), d.I64("time"))
		s.NoError(d.Finish())
	})

	s.Run("unsupported algorithm", func() {
		_, err := s.service.CreateTimestamp(s.ctx, alice, compliance.TimestampData{Data: []byte("x"), HashAlgorithm: "MD5"})
		s.ErrorIs(err, compliance.ErrUnsupportedHash)
	})

	s.Run("qualified timestamp needs a TSA certificate", func() {
		_, err := s.service.CreateTimestamp(s.ctx, alice, compliance.TimestampData{Data: []byte("x"), RequireQTS: true})
		s.ErrorIs(err, hub.ErrInvalidRequest)
	})

	s.Run("qualified timestamp with a valid TSA", func() {
		tsa := s.certificate()
		tsa.Kind = compliance.KindQualifiedSeal
		ts, err := s.service.CreateTimestamp(s.ctx, alice, compliance.TimestampData{
			Data:           []byte("x"),
			HashAlgorithm:  compliance.HashKeccak256,
			RequireQTS:     true,
			TSACertificate: &tsa,
		})
		s.Require().NoError(err)
		s.Equal(&tsa, ts.TSACertificate)
		s.Len(ts.HashValue, 32)
	})

	s.Run("data is required", func() {
		_, err := s.service.CreateTimestamp(s.ctx, alice, compliance.TimestampData{})
		s.ErrorIs(err, hub.ErrInvalidRequest)
	})
}

// =============================================================================
// Confidential Transaction Tests
// =============================================================================

func (s *ServiceSuite) confidentialRequest(op confidential.Operation) confidential.Request {
	return confidential.Request{
		EncryptedPayload:    []byte("payload"),
		Ciphertext:          []byte("ct"),
		Proof:               []byte("proof"),
		PublicInputs:        []byte("inputs"),
		Program:             program,
		EncryptionPublicKey: []byte("pk"),
		Operation:           op,
	}
}

func (s *ServiceSuite) TestProcessConfidentialTransaction() {
	s.initialize()

	s.Run("program must match", func() {
		req := s.confidentialRequest(confidential.OpConfidentialTransfer)
		req.Program = ident(5)
		_, err := s.service.ProcessConfidentialTransaction(s.ctx, alice, req)
		s.ErrorIs(err, hub.ErrInvalidProgram)
	})

	s.Run("policy requires a proof", func() {
		req := s.confidentialRequest(confidential.OpConfidentialTransfer)
		req.Proof = nil
		_, err := s.service.ProcessConfidentialTransaction(s.ctx, alice, req)
		s.ErrorIs(err, confidential.ErrProofRequired)
		s.Equal("PROOF_REQUIRED", hub.StatusOf(err))
	})

	s.Run("public inputs are required with a proof", func() {
		req := s.confidentialRequest(confidential.OpConfidentialTransfer)
		req.PublicInputs = nil
		_, err := s.service.ProcessConfidentialTransaction(s.ctx, alice, req)
		s.ErrorIs(err, confidential.ErrEmptyInput)
	})

	s.Run("proof rejected by the verifier", func() {
		req := s.confidentialRequest(confidential.OpConfidentialTransfer)
		s.proofs.EXPECT().VerifyProof(gomock.Any(), program, req.Proof, req.PublicInputs).Return(errors.New("bad proof"))
		_, err := s.service.ProcessConfidentialTransaction(s.ctx, alice, req)
		s.ErrorIs(err, hub.ErrInvalidProof)
	})

	s.Run("confidential transfer passes ciphertext through", func() {
		req := s.confidentialRequest(confidential.OpConfidentialTransfer)
		s.proofs.EXPECT().VerifyProof(gomock.Any(), program, req.Proof, req.PublicInputs).Return(nil)
		res, err := s.service.ProcessConfidentialTransaction(s.ctx, alice, req)
		s.Require().NoError(err)
		s.Equal(req.Ciphertext, res.Ciphertext)
		s.Equal(s.now, res.ProcessedAt)
		s.Contains(s.complianceActions(), string(audit.EventConfidentialProcessed))
	})

	s.Run("encrypt state uses the encryptor", func() {
		req := s.confidentialRequest(confidential.OpEncryptState)
		s.proofs.EXPECT().VerifyProof(gomock.Any(), program, gomock.Any(), gomock.Any()).Return(nil)
		s.encryptor.EXPECT().Encrypt(gomock.Any(), req.EncryptedPayload, req.EncryptionPublicKey).Return([]byte("sealed"), nil)
		res, err := s.service.ProcessConfidentialTransaction(s.ctx, alice, req)
		s.Require().NoError(err)
		s.Equal([]byte("sealed"), res.Ciphertext)
	})

	s.Run("oversized encrypted state is rejected", func() {
		req := s.confidentialRequest(confidential.OpEncryptState)
		s.proofs.EXPECT().VerifyProof(gomock.Any(), program, gomock.Any(), gomock.Any()).Return(nil)
		s.encryptor.EXPECT().Encrypt(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(make([]byte, confidential.DefaultMaxCiphertextSize+1), nil)
		_, err := s.service.ProcessConfidentialTransaction(s.ctx, alice, req)
		s.ErrorIs(err, confidential.ErrCiphertextTooLarge)
	})
}
