package audit

import (
	"context"
	"time"

	"bridgehub/pkg/domain"
)

// EventCategory classifies audit events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: wallet
	// verification, qualified signatures, confidential transactions. Persisted
	// fail-closed.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authorization failures and restricted-jurisdiction hits.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine lifecycle activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from hub operations to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         string
	Category   EventCategory
	Timestamp  time.Time
	Actor      domain.Identity
	Subject    string
	Action     string
	Decision   string
	Reason     string
	RequestID  string
	TransferID string
	// SignatureRequired marks records that must be countersigned by the
	// compliance authority before they are considered final.
	SignatureRequired bool
}

type AuditEvent string

const (
	EventHubInitialized   AuditEvent = "hub_initialized"
	EventHubConfigUpdated AuditEvent = "hub_config_updated"

	EventWalletRegistered     AuditEvent = "wallet_registered"
	EventTransactionSigned    AuditEvent = "transaction_signed"
	EventComplianceVerified   AuditEvent = "compliance_verified"
	EventComplianceRejected   AuditEvent = "compliance_rejected"
	EventJurisdictionBlocked  AuditEvent = "jurisdiction_blocked"
	EventUnauthorizedAttempt  AuditEvent = "unauthorized_attempt"
	EventQualifiedSigCreated  AuditEvent = "qualified_signature_created"
	EventQualifiedSigVerified AuditEvent = "qualified_signature_verified"
	EventTimestampCreated     AuditEvent = "timestamp_created"

	EventTransferInitiated AuditEvent = "transfer_initiated"
	EventTransferConfirmed AuditEvent = "transfer_confirmed"
	EventTransferCompleted AuditEvent = "transfer_completed"
	EventTransferCancelled AuditEvent = "transfer_cancelled"
	EventTransferFailed    AuditEvent = "transfer_failed"

	EventConfidentialProcessed AuditEvent = "confidential_transaction_processed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventComplianceVerified:    CategoryCompliance,
	EventComplianceRejected:    CategoryCompliance,
	EventQualifiedSigCreated:   CategoryCompliance,
	EventQualifiedSigVerified:  CategoryCompliance,
	EventTimestampCreated:      CategoryCompliance,
	EventConfidentialProcessed: CategoryCompliance,
	EventTransferInitiated:     CategoryCompliance,
	EventTransferCompleted:     CategoryCompliance,

	EventJurisdictionBlocked: CategorySecurity,
	EventUnauthorizedAttempt: CategorySecurity,
	EventHubConfigUpdated:    CategorySecurity,

	EventHubInitialized:    CategoryOperations,
	EventWalletRegistered:  CategoryOperations,
	EventTransactionSigned: CategoryOperations,
	EventTransferConfirmed: CategoryOperations,
	EventTransferCancelled: CategoryOperations,
	EventTransferFailed:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor domain.Identity) ([]Event, error)
}
