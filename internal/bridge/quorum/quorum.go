// Package quorum checks relay confirmations against a signer threshold.
package quorum

import (
	"errors"
	"fmt"

	"bridgehub/internal/bridge/models"
	"bridgehub/pkg/domain"
)

var ErrInsufficientConfirmations = errors.New("insufficient confirmations")

// Verify succeeds iff len(confirmations) >= threshold. Entries are counted
// as submitted; duplicates from one relayer each count. Callers that want
// distinct-relayer semantics filter with DistinctRelayers first.
func Verify(confirmations []models.RelayConfirmation, threshold uint8) error {
	if len(confirmations) < int(threshold) {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientConfirmations, len(confirmations), threshold)
	}
	return nil
}

// DistinctRelayers keeps the first confirmation from each relayer, preserving order.
func DistinctRelayers(confirmations []models.RelayConfirmation) []models.RelayConfirmation {
	seen := make(map[domain.Identity]struct{}, len(confirmations))
	out := make([]models.RelayConfirmation, 0, len(confirmations))
	for _, c := range confirmations {
		if _, ok := seen[c.Relayer]; ok {
			continue
		}
		seen[c.Relayer] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ErrInvalidThreshold is returned by CheckSigners for an unreachable threshold.
var ErrInvalidThreshold = errors.New("threshold must be between 1 and the number of owners")

// CheckSigners verifies that at least threshold distinct members of owners
// appear in signers. Non-owners and repeats are ignored.
func CheckSigners(owners, signers []domain.Identity, threshold uint8) error {
	if threshold == 0 || int(threshold) > len(owners) {
		return ErrInvalidThreshold
	}
	allowed := make(map[domain.Identity]struct{}, len(owners))
	for _, o := range owners {
		allowed[o] = struct{}{}
	}
	counted := make(map[domain.Identity]struct{}, len(signers))
	for _, s := range signers {
		if _, ok := allowed[s]; !ok {
			continue
		}
		counted[s] = struct{}{}
	}
	if len(counted) < int(threshold) {
		return fmt.Errorf("%w: have %d distinct owner signatures, need %d", ErrInsufficientConfirmations, len(counted), threshold)
	}
	return nil
}
