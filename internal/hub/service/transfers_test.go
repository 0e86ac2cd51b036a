package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/mock/gomock"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/bridge/models"
	"bridgehub/internal/bridge/transfer"
	"bridgehub/internal/compliance"
	"bridgehub/internal/compliance/policy"
	"bridgehub/internal/hub"
	"bridgehub/internal/hub/mocks"
	"bridgehub/pkg/domain"
	dErrors "bridgehub/pkg/domain-errors"
	"bridgehub/pkg/platform/audit"
)

func (s *ServiceSuite) initiateRequest(nonce uint64) hub.InitiateRequest {
	return hub.InitiateRequest{
		Recipient:        bob,
		Amount:           1_000_000,
		SourceChain:      1,
		DestinationChain: 8453,
		Nonce:            nonce,
	}
}

func (s *ServiceSuite) initiate(nonce uint64) models.CrossChainTransfer {
	s.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	t, err := s.service.InitiateCrossChain(s.ctx, alice, s.initiateRequest(nonce))
	s.Require().NoError(err)
	return t
}

func (s *ServiceSuite) confirmation(relayer domain.Identity) models.RelayConfirmation {
	return models.RelayConfirmation{
		Relayer:     relayer,
		TxHash:      []byte("0xfeed"),
		BlockNumber: 19_000_000,
		Timestamp:   s.now.Add(-time.Minute).Unix(),
		Signatures:  [][]byte{{relayer[domain.IdentitySize-1]}},
		Signers:     []domain.Identity{relayer},
	}
}

func (s *ServiceSuite) expectRelaySignature(transferID string, c models.RelayConfirmation, result error) *gomock.Call {
	digest := envelope.ConfirmationDigest(transferID, c)
	return s.verifier.EXPECT().Verify(gomock.Any(), c.Signers[0], digest[:], c.Signatures[0]).Return(result)
}

func (s *ServiceSuite) confirm(t models.CrossChainTransfer) models.CrossChainTransfer {
	confs := []models.RelayConfirmation{s.confirmation(relayerA), s.confirmation(relayerB)}
	for _, c := range confs {
		s.expectRelaySignature(t.ID, c, nil)
	}
	confirmed, err := s.service.ConfirmCrossChain(s.ctx, relayerA, t.ID, confs)
	s.Require().NoError(err)
	return confirmed
}

func (s *ServiceSuite) storedStatus(id string) models.TransferStatus {
	t, err := s.service.Transfer(s.ctx, id)
	s.Require().NoError(err)
	return t.Status
}

// =============================================================================
// Initiation Tests
// =============================================================================

func (s *ServiceSuite) TestInitiateCrossChain() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)

	s.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg models.CrossChainMessage) error {
		s.Equal(models.KindTokenTransfer, msg.Kind)
		s.Equal(alice, msg.Sender)
		s.Equal(bob, msg.Recipient)
		s.Equal(uint64(1), msg.Nonce)

		payload, err := envelope.DecodeTransfer(msg.Payload)
		s.Require().NoError(err)
		s.Equal(uint64(1_000_000), payload.Amount)
		s.Equal(uint64(2_600), payload.Fee)
		return nil
	})

	t, err := s.service.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
	s.Require().NoError(err)
	s.Equal(models.StatusInitiated, t.Status)
	s.Equal(uint64(2_600), t.Fee)
	s.Equal(s.now.Unix(), t.Timestamp)
	s.NotEmpty(t.ID)

	stored, err := s.service.Transfer(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t, stored)

	stats, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), stats.TotalTransactions)
	s.Equal(uint64(1_000_000), stats.TotalVolume)
	s.Contains(s.complianceActions(), string(audit.EventTransferInitiated))

	s.Run("nonce cannot be reused", func() {
		_, err := s.service.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
		s.ErrorIs(err, hub.ErrDuplicateNonce)
		s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestInitiateCrossChain_Rejections() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)
	_, err := s.service.RegisterWallet(s.ctx, bob, []byte("pk"), nil)
	s.Require().NoError(err)
	unknownToken := ident(99)

	tests := []struct {
		name   string
		caller domain.Identity
		modify func(*hub.InitiateRequest)
		want   error
		status string
	}{
		{
			name:   "unsupported source chain",
			caller: alice,
			modify: func(r *hub.InitiateRequest) { r.SourceChain = 56 },
			want:   hub.ErrUnsupportedChain,
			status: "UNSUPPORTED_CHAIN",
		},
		{
			name:   "missing recipient",
			caller: alice,
			modify: func(r *hub.InitiateRequest) { r.Recipient = domain.Identity{} },
			want:   hub.ErrInvalidRequest,
			status: "INVALID_REQUEST",
		},
		{
			name:   "amount below hub minimum",
			caller: alice,
			modify: func(r *hub.InitiateRequest) { r.Amount = 5 },
			want:   transfer.ErrAmountTooLow,
			status: "AMOUNT_TOO_LOW",
		},
		{
			name:   "unknown token",
			caller: alice,
			modify: func(r *hub.InitiateRequest) { r.TokenAddress = &unknownToken },
			want:   transfer.ErrUnsupportedToken,
			status: "UNSUPPORTED_TOKEN",
		},
		{
			name:   "basic tier above ceiling",
			caller: alice,
			modify: func(r *hub.InitiateRequest) { r.Amount = compliance.DefaultBasicTierCeiling + 1 },
			want:   compliance.ErrTierLimitExceeded,
			status: "COMPLIANCE_REQUIRED",
		},
		{
			name:   "unverified wallet above large transfer threshold",
			caller: bob,
			modify: func(r *hub.InitiateRequest) {
				r.Recipient = alice
				r.Amount = compliance.DefaultLargeTransferThreshold + 1
			},
			want:   compliance.ErrComplianceRequired,
			status: "COMPLIANCE_REQUIRED",
		},
		{
			name:   "sender without wallet",
			caller: ident(77),
			modify: func(*hub.InitiateRequest) {},
			want:   hub.ErrWalletNotFound,
			status: "WALLET_NOT_FOUND",
		},
	}

	for i, tt := range tests {
		s.Run(tt.name, func() {
			req := s.initiateRequest(uint64(100 + i))
			tt.modify(&req)
			_, err := s.service.InitiateCrossChain(s.ctx, tt.caller, req)
			s.ErrorIs(err, tt.want)
			s.Equal(tt.status, hub.StatusOf(err))
		})
	}

	out, err := s.service.TransfersBySender(s.ctx, alice)
	s.Require().NoError(err)
	s.Empty(out)
}

func (s *ServiceSuite) TestInitiateCrossChain_RestrictedJurisdiction() {
	s.initialize()
	s.registerVerified(alice, compliance.TierHigh)

	w, err := s.wallets.Get(s.ctx, alice)
	s.Require().NoError(err)
	w.Jurisdiction = "IR"
	s.Require().NoError(s.wallets.Update(s.ctx, w))

	auditor := mocks.NewMockAuditPublisher(s.ctrl)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		s.Equal(string(audit.EventJurisdictionBlocked), e.Action)
		s.Equal(audit.CategorySecurity, e.Category)
		s.Equal("IR", e.Subject)
		return nil
	})
	svc := s.newService(WithAuditPublisher(auditor))

	_, err = svc.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
	s.ErrorIs(err, transfer.ErrComplianceRequired)
	s.ErrorIs(err, compliance.ErrJurisdictionRestricted)
	s.Equal("COMPLIANCE_REQUIRED", hub.StatusOf(err))
	s.Equal(dErrors.CodeComplianceFailed, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestInitiateCrossChain_Paused() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)

	cfg := testConfig()
	cfg.Paused = true
	_, err := s.service.UpdateConfig(s.ctx, admin, cfg)
	s.Require().NoError(err)

	_, err = s.service.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
	s.ErrorIs(err, transfer.ErrBridgePaused)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestInitiateCrossChain_PolicyDenied() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)

	engine := mocks.NewMockPolicyEngine(s.ctrl)
	engine.EXPECT().Check(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, in policy.Input) error {
		s.Equal(alice.String(), in.Sender)
		s.Equal(uint64(1_000_000), in.Amount)
		s.Equal("basic", in.Tier)
		s.Equal("DE", in.Jurisdiction)
		return fmt.Errorf("%w: recipient on watchlist", policy.ErrDenied)
	})
	svc := s.newService(WithPolicy(engine))

	_, err := svc.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
	s.ErrorIs(err, policy.ErrDenied)
	s.Equal("POLICY_DENIED", hub.StatusOf(err))
}

func (s *ServiceSuite) TestInitiateCrossChain_NotifierFailure() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)

	s.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	t, err := s.service.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
	s.ErrorIs(err, hub.ErrNotifierUnavailable)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	s.Equal(models.StatusInitiated, t.Status)
	s.Equal(models.StatusInitiated, s.storedStatus(t.ID))

	s.Run("publish retries the announcement", func() {
		s.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg models.CrossChainMessage) error {
			s.Equal(models.KindTokenTransfer, msg.Kind)
			return nil
		})
		s.NoError(s.service.PublishTransfer(s.ctx, alice, t.ID))
	})

	s.Run("strangers cannot publish", func() {
		err := s.service.PublishTransfer(s.ctx, bob, t.ID)
		s.ErrorIs(err, hub.ErrUnauthorized)
	})
}

func (s *ServiceSuite) TestInitiateCrossChain_ComplianceAuditFailure() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)

	failing := mocks.NewMockAuditPublisher(s.ctrl)
	failing.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit store down"))
	svc := s.newService(WithComplianceAudit(failing))

	_, err := svc.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
	s.Error(err)

	out, err := s.service.TransfersBySender(s.ctx, alice)
	s.Require().NoError(err)
	s.Empty(out)
	stats, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.TotalTransactions)
}

func (s *ServiceSuite) TestInitiateCrossChain_TransactionAborted() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)

	tx := mocks.NewMockTransactor(s.ctrl)
	tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(errors.New("serialization failure"))
	svc := s.newService(WithTransactor(tx))

	_, err := svc.InitiateCrossChain(s.ctx, alice, s.initiateRequest(1))
	s.Error(err)
	s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))

	out, err := s.service.TransfersBySender(s.ctx, alice)
	s.Require().NoError(err)
	s.Empty(out)
}

// =============================================================================
// Confirmation Tests
// =============================================================================

func (s *ServiceSuite) TestConfirmCrossChain() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)
	t := s.initiate(1)

	s.Run("one confirmation is below quorum", func() {
		c := s.confirmation(relayerA)
		s.expectRelaySignature(t.ID, c, nil)

		_, err := s.service.ConfirmCrossChain(s.ctx, relayerA, t.ID, []models.RelayConfirmation{c})
		s.ErrorIs(err, transfer.ErrInsufficientConfirmations)
		s.Equal("INSUFFICIENT_CONFIRMATIONS", hub.StatusOf(err))
		s.Equal(models.StatusInitiated, s.storedStatus(t.ID))
	})

	s.Run("stale confirmation is rejected before verification", func() {
		c := s.confirmation(relayerA)
		c.Timestamp = s.now.Add(-2 * time.Hour).Unix()

		_, err := s.service.ConfirmCrossChain(s.ctx, relayerA, t.ID, []models.RelayConfirmation{c, s.confirmation(relayerB)})
		s.ErrorIs(err, hub.ErrStaleConfirmation)
	})

	s.Run("misaligned signer list is rejected", func() {
		c := s.confirmation(relayerA)
		c.Signatures = append(c.Signatures, []byte("extra"))

		_, err := s.service.ConfirmCrossChain(s.ctx, relayerA, t.ID, []models.RelayConfirmation{c, s.confirmation(relayerB)})
		s.ErrorIs(err, models.ErrSignerMismatch)
	})

	s.Run("bad relay signature is rejected", func() {
		a, b := s.confirmation(relayerA), s.confirmation(relayerB)
		s.expectRelaySignature(t.ID, a, nil)
		s.expectRelaySignature(t.ID, b, errors.New("bad sig"))

		_, err := s.service.ConfirmCrossChain(s.ctx, relayerA, t.ID, []models.RelayConfirmation{a, b})
		s.ErrorIs(err, hub.ErrInvalidSignature)
		s.Equal(models.StatusInitiated, s.storedStatus(t.ID))
	})

	s.Run("quorum confirms", func() {
		confirmed := s.confirm(t)
		s.Equal(models.StatusConfirmed, confirmed.Status)
		s.Equal(models.StatusConfirmed, s.storedStatus(t.ID))
	})

	s.Run("confirmed transfer reports its state before checking confirmations", func() {
		stale := s.confirmation(relayerA)
		stale.Timestamp = s.now.Add(-2 * time.Hour).Unix()

		_, err := s.service.ConfirmCrossChain(s.ctx, relayerA, t.ID, []models.RelayConfirmation{stale, s.confirmation(relayerB)})
		s.ErrorIs(err, transfer.ErrInvalidState)
		s.Equal("INVALID_STATE", hub.StatusOf(err))
	})

	s.Run("unknown transfer", func() {
		_, err := s.service.ConfirmCrossChain(s.ctx, relayerA, "missing", nil)
		s.ErrorIs(err, hub.ErrTransferNotFound)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestConfirmCrossChain_DedupeRelayers() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)
	t := s.initiate(1)

	cfg := testConfig()
	cfg.DedupeRelayers = true
	_, err := s.service.UpdateConfig(s.ctx, admin, cfg)
	s.Require().NoError(err)

	first := s.confirmation(relayerA)
	second := s.confirmation(relayerA)
	second.BlockNumber++
	s.expectRelaySignature(t.ID, first, nil)

	_, err = s.service.ConfirmCrossChain(s.ctx, relayerA, t.ID, []models.RelayConfirmation{first, second})
	s.ErrorIs(err, transfer.ErrInsufficientConfirmations)
}

// =============================================================================
// Completion and Settlement Tests
// =============================================================================

func (s *ServiceSuite) TestCompleteCrossChain() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)
	t := s.initiate(1)

	s.Run("initiated transfer cannot complete", func() {
		_, err := s.service.CompleteCrossChain(s.ctx, bridgeAuth, t.ID)
		s.ErrorIs(err, transfer.ErrInvalidState)
		s.Equal(dErrors.CodeInvalidState, dErrors.CodeOf(err))
	})

	s.confirm(t)

	s.Run("only the bridge authority completes", func() {
		_, err := s.service.CompleteCrossChain(s.ctx, alice, t.ID)
		s.ErrorIs(err, transfer.ErrUnauthorized)
		s.Equal("UNAUTHORIZED", hub.StatusOf(err))
		s.Equal(models.StatusConfirmed, s.storedStatus(t.ID))
	})

	s.Run("authority completes and announces receipt", func() {
		s.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg models.CrossChainMessage) error {
			s.Equal(models.KindTokenReceive, msg.Kind)
			s.Equal(t.Nonce, msg.Nonce)
			return nil
		})

		completed, err := s.service.CompleteCrossChain(s.ctx, bridgeAuth, t.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, completed.Status)
		s.Contains(s.complianceActions(), string(audit.EventTransferCompleted))
	})

	s.Run("completed transfer cannot be cancelled", func() {
		_, err := s.service.CancelCrossChain(s.ctx, alice, t.ID)
		s.ErrorIs(err, transfer.ErrInvalidState)
	})

	s.Run("completed transfer cannot fail", func() {
		_, err := s.service.FailCrossChain(s.ctx, bridgeAuth, t.ID, "late")
		s.ErrorIs(err, transfer.ErrInvalidState)
	})
}

func (s *ServiceSuite) TestCancelCrossChain() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)
	first := s.initiate(1)
	second := s.initiate(2)

	s.Run("strangers cannot cancel", func() {
		_, err := s.service.CancelCrossChain(s.ctx, bob, first.ID)
		s.ErrorIs(err, hub.ErrUnauthorized)
	})

	s.Run("sender cancels", func() {
		cancelled, err := s.service.CancelCrossChain(s.ctx, alice, first.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)
	})

	s.Run("cancelling twice succeeds", func() {
		cancelled, err := s.service.CancelCrossChain(s.ctx, alice, first.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)
	})

	s.Run("bridge authority cancels", func() {
		cancelled, err := s.service.CancelCrossChain(s.ctx, bridgeAuth, second.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)
	})

	s.Run("nothing to publish for a cancelled transfer", func() {
		err := s.service.PublishTransfer(s.ctx, alice, first.ID)
		s.ErrorIs(err, transfer.ErrInvalidState)
	})
}

func (s *ServiceSuite) TestFailCrossChain() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)
	t := s.initiate(1)

	s.Run("sender cannot fail", func() {
		_, err := s.service.FailCrossChain(s.ctx, alice, t.ID, "changed my mind")
		s.ErrorIs(err, hub.ErrUnauthorized)
	})

	s.Run("bridge authority fails", func() {
		failed, err := s.service.FailCrossChain(s.ctx, bridgeAuth, t.ID, "relay timeout")
		s.Require().NoError(err)
		s.Equal(models.StatusFailed, failed.Status)
	})

	s.Run("failing twice succeeds", func() {
		failed, err := s.service.FailCrossChain(s.ctx, bridgeAuth, t.ID, "")
		s.Require().NoError(err)
		s.Equal(models.StatusFailed, failed.Status)
	})

	s.Run("failed transfer cannot be cancelled", func() {
		_, err := s.service.CancelCrossChain(s.ctx, alice, t.ID)
		s.ErrorIs(err, transfer.ErrInvalidState)
	})
}

func (s *ServiceSuite) TestTransfersBySender() {
	s.initialize()
	s.registerVerified(alice, compliance.TierBasic)
	for _, nonce := range []uint64{3, 1, 2} {
		s.initiate(nonce)
	}

	out, err := s.service.TransfersBySender(s.ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(out, 3)
	for i, t := range out {
		s.Equal(uint64(i+1), t.Nonce)
	}

	out, err = s.service.TransfersBySender(s.ctx, bob)
	s.Require().NoError(err)
	s.Empty(out)

	_, err = s.service.Transfer(s.ctx, "missing")
	s.ErrorIs(err, hub.ErrTransferNotFound)
}
