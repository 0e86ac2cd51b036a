// Package compliance gates transfers and signatures on identity assurance,
// jurisdiction and qualified-certificate validity.
package compliance

import (
	"fmt"
	"time"

	"bridgehub/pkg/domain"
)

// Tier is an identity assurance level. Tiers are totally ordered and the
// zero value is TierNone.
type Tier uint8

const (
	TierNone Tier = iota
	TierBasic
	TierSubstantial
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierBasic:
		return "basic"
	case TierSubstantial:
		return "substantial"
	case TierHigh:
		return "high"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

func (t Tier) IsValid() bool {
	switch t {
	case TierNone, TierBasic, TierSubstantial, TierHigh:
		return true
	}
	return false
}

// AtLeast reports whether t meets the minimum tier.
func (t Tier) AtLeast(minimum Tier) bool {
	return t >= minimum
}

func ParseTier(v string) (Tier, error) {
	for t := TierNone; t <= TierHigh; t++ {
		if t.String() == v {
			return t, nil
		}
	}
	return TierNone, fmt.Errorf("unknown compliance tier %q", v)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid compliance tier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CertificateKind classifies a qualified certificate.
type CertificateKind uint8

const (
	KindQualifiedSignature CertificateKind = iota
	KindQualifiedSeal
	KindWebAuthentication
)

func (k CertificateKind) String() string {
	switch k {
	case KindQualifiedSignature:
		return "qes"
	case KindQualifiedSeal:
		return "qeseal"
	case KindWebAuthentication:
		return "web_auth"
	}
	return fmt.Sprintf("certificate_kind(%d)", uint8(k))
}

func (k CertificateKind) MarshalText() ([]byte, error) {
	switch k {
	case KindQualifiedSignature, KindQualifiedSeal, KindWebAuthentication:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("invalid certificate kind %d", uint8(k))
}

func (k *CertificateKind) UnmarshalText(text []byte) error {
	for c := KindQualifiedSignature; c <= KindWebAuthentication; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown certificate kind %q", string(text))
}

// Record is the result of an external identity verification. It is
// immutable once attached to a wallet.
type Record struct {
	Verified         bool              `json:"verified"`
	Tier             Tier              `json:"tier"`
	KYCVerified      bool              `json:"kyc_verified"`
	AMLScreened      bool              `json:"aml_screened"`
	Restricted       bool              `json:"restricted"`
	VerificationDate int64             `json:"verification_date"`
	ExpiryDate       int64             `json:"expiry_date"`
	Jurisdiction     string            `json:"jurisdiction"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// QualifiedCertificate asserts a signer identity verified to a regulated
// standard. NotAfter == 0 means no expiry.
type QualifiedCertificate struct {
	Subject       string          `json:"subject"`
	Issuer        string          `json:"issuer"`
	SerialNumber  []byte          `json:"serial_number"`
	NotBefore     int64           `json:"not_before"`
	NotAfter      int64           `json:"not_after"`
	PublicKeyHash []byte          `json:"public_key_hash"`
	Kind          CertificateKind `json:"kind"`
	Country       string          `json:"country"`
	QSCD          bool            `json:"qscd"`
}

// QualifiedSignature is a signature bound to a qualified certificate.
type QualifiedSignature struct {
	Signature   []byte               `json:"signature"`
	Certificate QualifiedCertificate `json:"certificate"`
	SignedData  []byte               `json:"signed_data"`
	Timestamp   *int64               `json:"timestamp,omitempty"`
	Algorithm   string               `json:"signature_algorithm"`
	SignerRole  string               `json:"signer_role"`
}

// QualifiedSignatureData is a request to create a qualified signature.
type QualifiedSignatureData struct {
	DataToSign  []byte `json:"data_to_sign"`
	Certificate []byte `json:"certificate"`
	Signature   []byte `json:"signature"`
	Timestamp   *int64 `json:"timestamp,omitempty"`
}

// TimestampData is a request for a qualified timestamp over Data.
type TimestampData struct {
	Data          []byte `json:"data_to_timestamp"`
	HashAlgorithm string `json:"hash_algorithm"`
	RequireQTS    bool   `json:"require_qts"`
	// TSACertificate must be present and valid when RequireQTS is set.
	TSACertificate *QualifiedCertificate `json:"tsa_certificate,omitempty"`
}

type QualifiedTimestamp struct {
	Token          []byte                `json:"ts_token"`
	TSACertificate *QualifiedCertificate `json:"tsa_certificate,omitempty"`
	Time           int64                 `json:"time"`
	HashAlgorithm  string                `json:"hash_algorithm"`
	HashValue      []byte                `json:"hash_value"`
}

// AuditLog is a compliance audit entry. Entries always require a signature.
type AuditLog struct {
	ID                string          `json:"id"`
	Timestamp         int64           `json:"timestamp"`
	Action            string          `json:"action"`
	User              domain.Identity `json:"user"`
	Details           string          `json:"details"`
	ComplianceStatus  string          `json:"compliance_status"`
	SignatureRequired bool            `json:"signature_required"`
	Signature         []byte          `json:"signature,omitempty"`
}

// NewAuditLog builds an unsigned audit entry with the given id and time.
func NewAuditLog(id string, at time.Time, action string, user domain.Identity, details, status string) AuditLog {
	return AuditLog{
		ID:                id,
		Timestamp:         at.Unix(),
		Action:            action,
		User:              user,
		Details:           details,
		ComplianceStatus:  status,
		SignatureRequired: true,
	}
}
