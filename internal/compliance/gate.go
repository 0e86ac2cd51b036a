package compliance

import (
	"errors"
	"fmt"
	"time"

	"bridgehub/pkg/platform/strings"
)

var (
	ErrNotQscd                = errors.New("certificate not issued on a qualified signature creation device")
	ErrNotYetValid            = errors.New("certificate not yet valid")
	ErrExpired                = errors.New("certificate expired")
	ErrJurisdictionRestricted = errors.New("jurisdiction restricted")
	ErrComplianceRequired     = errors.New("compliance verification required")
	ErrTierLimitExceeded      = errors.New("compliance tier limit exceeded")
	ErrMissingTimestamp       = errors.New("qualified signature requires a timestamp")
)

const (
	// DefaultBasicTierCeiling is the largest amount a Basic (or unverified)
	// identity may move.
	DefaultBasicTierCeiling uint64 = 100_000_000
	// DefaultLargeTransferThreshold is the amount above which an unverified
	// identity is refused outright.
	DefaultLargeTransferThreshold uint64 = 1_000_000_000
)

// DefaultRestrictedJurisdictions returns the built-in blocklist.
func DefaultRestrictedJurisdictions() []string {
	return []string{"KP", "IR", "SY"}
}

// Gate evaluates compliance rules. It holds configuration only and is safe
// for concurrent use.
type Gate struct {
	restricted     strings.Set
	basicCeiling   uint64
	largeThreshold uint64
	now            func() time.Time
}

type Option func(*Gate)

// WithRestrictedJurisdictions replaces the jurisdiction blocklist. Matching
// is exact and case-sensitive.
func WithRestrictedJurisdictions(codes ...string) Option {
	return func(g *Gate) {
		g.restricted = strings.NewSet(codes...)
	}
}

func WithBasicTierCeiling(amount uint64) Option {
	return func(g *Gate) {
		g.basicCeiling = amount
	}
}

func WithLargeTransferThreshold(amount uint64) Option {
	return func(g *Gate) {
		g.largeThreshold = amount
	}
}

// WithClock sets the time source for certificate validity checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate returns a gate with default thresholds and blocklist.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		restricted:     strings.NewSet(DefaultRestrictedJurisdictions()...),
		basicCeiling:   DefaultBasicTierCeiling,
		largeThreshold: DefaultLargeTransferThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsRestricted reports whether jurisdiction is on the blocklist.
func (g *Gate) IsRestricted(jurisdiction string) bool {
	return g.restricted.Contains(jurisdiction)
}

// RestrictedJurisdictions returns the blocklist in sorted order.
func (g *Gate) RestrictedJurisdictions() []string {
	return g.restricted.Sorted()
}

// CheckCertificate validates the device flag and the validity window, in
// that order. A certificate whose window is inverted fails one of the window
// checks for every current time.
func (g *Gate) CheckCertificate(cert QualifiedCertificate) error {
	if !cert.QSCD {
		return ErrNotQscd
	}
	now := g.now().Unix()
	if now < cert.NotBefore {
		return fmt.Errorf("%w: valid from %d", ErrNotYetValid, cert.NotBefore)
	}
	if cert.NotAfter != 0 && now > cert.NotAfter {
		return fmt.Errorf("%w: valid until %d", ErrExpired, cert.NotAfter)
	}
	return nil
}

// RequiredTier is the lowest tier amount needs before per-tier caps apply:
// anything above the large-transfer threshold needs a verified identity. It
// is monotonic, a larger amount never requires a lower tier.
func (g *Gate) RequiredTier(amount uint64) Tier {
	if amount > g.largeThreshold {
		return TierBasic
	}
	return TierNone
}

// CheckTransfer applies the jurisdiction blocklist, then the tier rules.
// An unverified identity above the large-transfer threshold fails
// ErrComplianceRequired. Basic is the only capped tier; above the basic-tier
// ceiling it fails ErrTierLimitExceeded.
func (g *Gate) CheckTransfer(amount uint64, tier Tier, jurisdiction string) error {
	if g.IsRestricted(jurisdiction) {
		return fmt.Errorf("%w: %q", ErrJurisdictionRestricted, jurisdiction)
	}
	if !tier.AtLeast(g.RequiredTier(amount)) {
		return fmt.Errorf("%w: amount %d exceeds %d", ErrComplianceRequired, amount, g.largeThreshold)
	}
	if tier == TierBasic && amount > g.basicCeiling {
		return fmt.Errorf("%w: %s tier allows at most %d", ErrTierLimitExceeded, tier, g.basicCeiling)
	}
	return nil
}

// CheckRecord rejects verification records flagged restricted or issued in
// a blocked jurisdiction, and records whose expiry has passed.
func (g *Gate) CheckRecord(rec Record) error {
	if rec.Restricted {
		return fmt.Errorf("%w: record flagged restricted", ErrJurisdictionRestricted)
	}
	if g.IsRestricted(rec.Jurisdiction) {
		return fmt.Errorf("%w: %q", ErrJurisdictionRestricted, rec.Jurisdiction)
	}
	if rec.ExpiryDate != 0 && g.now().Unix() > rec.ExpiryDate {
		return fmt.Errorf("%w: record expired at %d", ErrExpired, rec.ExpiryDate)
	}
	return nil
}

// VerifyQualifiedSignature checks the certificate and the presence of a
// timestamp. Cryptographic verification of the signature is not done here.
func (g *Gate) VerifyQualifiedSignature(sig QualifiedSignature, _ []byte) error {
	if err := g.CheckCertificate(sig.Certificate); err != nil {
		return err
	}
	if sig.Timestamp == nil {
		return ErrMissingTimestamp
	}
	return nil
}
