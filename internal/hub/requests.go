package hub

import (
	"time"

	"bridgehub/internal/compliance"
	"bridgehub/pkg/domain"
)

// TransactionSignatureData is a wallet owner's request to sign a transaction.
// Signature is the owner's signature over TransactionHash.
type TransactionSignatureData struct {
	TransactionHash  []byte          `json:"transaction_hash"`
	Amount           uint64          `json:"amount"`
	Recipient        domain.Identity `json:"recipient"`
	SourceChain      domain.ChainID  `json:"source_chain"`
	DestinationChain domain.ChainID  `json:"destination_chain"`
	Nonce            uint64          `json:"nonce"`
	Signature        []byte          `json:"signature"`
}

// TransactionReceipt records an accepted signature.
type TransactionReceipt struct {
	Owner           domain.Identity `json:"owner"`
	TransactionHash []byte          `json:"transaction_hash"`
	Amount          uint64          `json:"amount"`
	Nonce           uint64          `json:"nonce"`
	DailyTotal      uint64          `json:"daily_total"`
	SignedAt        time.Time       `json:"signed_at"`
}

// InitiateRequest asks to move Amount from the caller to Recipient.
type InitiateRequest struct {
	Recipient        domain.Identity  `json:"recipient"`
	Amount           uint64           `json:"amount"`
	SourceChain      domain.ChainID   `json:"source_chain"`
	DestinationChain domain.ChainID   `json:"destination_chain"`
	TokenAddress     *domain.Identity `json:"token_address,omitempty"`
	Nonce            uint64           `json:"nonce"`
}

// ConfidentialResult is the outcome of an accepted confidential transaction.
type ConfidentialResult struct {
	Program     domain.Identity `json:"program"`
	Ciphertext  []byte          `json:"ciphertext"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// QualifiedSignatureRequest asks the hub to record a qualified signature.
// Certificate carries the raw certificate; CertificateInfo its parsed fields.
type QualifiedSignatureRequest struct {
	compliance.QualifiedSignatureData
	CertificateInfo compliance.QualifiedCertificate `json:"certificate_info"`
	Algorithm       string                          `json:"signature_algorithm"`
	SignerRole      string                          `json:"signer_role"`
}
