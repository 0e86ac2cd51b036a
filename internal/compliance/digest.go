package compliance

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Hash algorithm names accepted for qualified timestamps.
const (
	HashSHA256    = "SHA-256"
	HashSHA3256   = "SHA3-256"
	HashKeccak256 = "KECCAK-256"
)

var ErrUnsupportedHash = errors.New("unsupported hash algorithm")

// HashData digests data with the named algorithm.
func HashData(algorithm string, data []byte) ([]byte, error) {
	var h hash.Hash
	switch algorithm {
	case HashSHA256:
		h = sha256.New()
	case HashSHA3256:
		h = sha3.New256()
	case HashKeccak256:
		h = sha3.NewLegacyKeccak256()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, algorithm)
	}
	h.Write(data)
	return h.Sum(nil), nil
}
