// Package domain holds the value types shared by every bridgehub module.
package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	dErrors "bridgehub/pkg/domain-errors"
)

// IdentitySize is the fixed width of an Identity in bytes.
const IdentitySize = 32

// Identity is an opaque 32-byte account address. The all-zero value is never
// a valid identity; optional identities are modelled as *Identity.
type Identity [IdentitySize]byte

// ParseIdentity parses a hex-encoded identity, with or without a 0x prefix.
// Empty, malformed, and all-zero inputs are rejected.
func ParseIdentity(s string) (Identity, error) {
	var ident Identity
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if raw == "" {
		return ident, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if len(raw) != hex.EncodedLen(IdentitySize) {
		return ident, dErrors.New(dErrors.CodeInvalidInput, "identity must be 32 bytes of hex")
	}
	if _, err := hex.Decode(ident[:], []byte(raw)); err != nil {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity must be 32 bytes of hex")
	}
	if ident.IsZero() {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be the zero address")
	}
	return ident, nil
}

// IdentityFromBytes copies b into an Identity. b must be exactly 32 bytes and non-zero.
func IdentityFromBytes(b []byte) (Identity, error) {
	var ident Identity
	if len(b) != IdentitySize {
		return ident, dErrors.New(dErrors.CodeInvalidInput, "identity must be 32 bytes")
	}
	copy(ident[:], b)
	if ident.IsZero() {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be the zero address")
	}
	return ident, nil
}

// MustIdentity is ParseIdentity for constants and tests. It panics on invalid input.
func MustIdentity(s string) Identity {
	ident, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return ident
}

// IsZero reports whether the identity is the unset all-zero value.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

// Bytes returns a copy of the raw identity bytes.
func (i Identity) Bytes() []byte {
	out := make([]byte, IdentitySize)
	copy(out, i[:])
	return out
}

func (i Identity) String() string {
	return hex.EncodeToString(i[:])
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Equal compares two optional identities. Two unset identities are equal.
func Equal(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Is reports whether the optional identity is set and equal to other.
func Is(opt *Identity, other Identity) bool {
	return opt != nil && *opt == other
}

// ChainID identifies a ledger that can be the source or destination of a transfer.
type ChainID uint64

func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}
