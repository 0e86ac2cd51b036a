package hub

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"bridgehub/internal/bridge/transfer"
	"bridgehub/internal/compliance"
	"bridgehub/internal/wallet"
	dErrors "bridgehub/pkg/domain-errors"
	"bridgehub/pkg/platform/sentinel"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "OK"},
		{"unknown", errors.New("boom"), "INTERNAL"},
		{"direct", ErrWalletNotFound, "WALLET_NOT_FOUND"},
		{"wrapped", fmt.Errorf("load: %w", wallet.ErrDailyLimitExceeded), "DAILY_LIMIT_EXCEEDED"},
		{
			"transfer meaning wins over its cause",
			fmt.Errorf("%w: %w", transfer.ErrComplianceRequired, compliance.ErrJurisdictionRestricted),
			"COMPLIANCE_REQUIRED",
		},
		{"bare cause", compliance.ErrJurisdictionRestricted, "JURISDICTION_RESTRICTED"},
		{"store sentinel", sentinel.ErrUnavailable, "UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestTranslate(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Translate(nil))
	})

	t.Run("mapped error gains a code and keeps its cause", func(t *testing.T) {
		err := Translate(fmt.Errorf("%w: nonce 7", ErrDuplicateNonce))
		assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
		assert.Equal(t, "nonce already used", dErrors.MessageOf(err))
		assert.ErrorIs(t, err, ErrDuplicateNonce)
	})

	t.Run("coded error is unchanged", func(t *testing.T) {
		coded := dErrors.New(dErrors.CodeForbidden, "nope")
		assert.Same(t, coded, Translate(coded))
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		err := Translate(errors.New("disk on fire"))
		assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
	})
}
