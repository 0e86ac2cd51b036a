package service

import (
	"context"
	"fmt"

	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/audit"
	"bridgehub/pkg/requestcontext"
)

func (s *Service) event(ctx context.Context, action audit.AuditEvent, actor domain.Identity, subject, transferID, decision, reason string) audit.Event {
	return audit.Event{
		Category:   action.Category(),
		Timestamp:  s.now(ctx),
		Actor:      actor,
		Subject:    subject,
		Action:     string(action),
		Decision:   decision,
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
		TransferID: transferID,
	}
}

// logAudit logs the action and emits it through the best-effort publisher.
// Publish failures are logged, never returned.
func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, actor domain.Identity, subject, transferID, decision, reason string) {
	s.logger.InfoContext(ctx, string(action),
		"actor", actor.String(),
		"subject", subject,
		"transfer_id", transferID,
		"decision", decision,
		"reason", reason,
	)
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, s.event(ctx, action, actor, subject, transferID, decision, reason)); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", string(action), "error", err)
	}
}

// emitCompliance writes a compliance event through the fail-closed
// publisher. Callers must abort the operation when it returns an error.
func (s *Service) emitCompliance(ctx context.Context, action audit.AuditEvent, actor domain.Identity, subject, transferID, decision, reason string) error {
	s.logger.InfoContext(ctx, string(action),
		"actor", actor.String(),
		"subject", subject,
		"transfer_id", transferID,
		"decision", decision,
	)
	if s.complianceAudit == nil {
		return nil
	}
	if err := s.complianceAudit.Emit(ctx, s.event(ctx, action, actor, subject, transferID, decision, reason)); err != nil {
		return fmt.Errorf("compliance audit: %w", err)
	}
	return nil
}
