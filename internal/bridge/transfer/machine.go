// Package transfer implements the cross-chain transfer lifecycle.
//
//	Pending   -> Initiated | Failed | Cancelled
//	Initiated -> Confirmed | Failed | Cancelled
//	Confirmed -> Completed | Failed
//
// Completed, Failed and Cancelled are terminal. The machine holds no state
// of its own; callers serialize mutations of a single transfer.
package transfer

import (
	"errors"
	"fmt"

	"bridgehub/internal/bridge/fee"
	"bridgehub/internal/bridge/models"
	"bridgehub/internal/bridge/quorum"
	"bridgehub/internal/compliance"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
)

var (
	ErrBridgePaused              = errors.New("bridge paused")
	ErrNoEnabledTokens           = errors.New("no enabled tokens")
	ErrUnsupportedToken          = errors.New("token not supported")
	ErrAmountTooLow              = errors.New("amount too low")
	ErrAmountTooHigh             = errors.New("amount too high")
	ErrComplianceRequired        = errors.New("compliance required")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrInvalidState              = errors.New("invalid transfer state")
	ErrInsufficientConfirmations = errors.New("insufficient confirmations")
)

// Limits are the hub-level admission parameters.
type Limits struct {
	MinAmount uint64
	MaxAmount uint64
	// Paused stops initiation in addition to the bridge emergency breaker.
	Paused bool
	// Authority is the only identity allowed to complete transfers. Unset
	// means nobody can.
	Authority *domain.Identity
}

type Machine struct {
	gate   *compliance.Gate
	bridge models.BridgeConfig
	limits Limits
}

func NewMachine(gate *compliance.Gate, bridge models.BridgeConfig, limits Limits) *Machine {
	if gate == nil {
		gate = compliance.NewGate()
	}
	return &Machine{gate: gate, bridge: bridge, limits: limits}
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to models.TransferStatus) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusInitiated || to == models.StatusFailed || to == models.StatusCancelled
	case models.StatusInitiated:
		return to == models.StatusConfirmed || to == models.StatusFailed || to == models.StatusCancelled
	case models.StatusConfirmed:
		return to == models.StatusCompleted || to == models.StatusFailed
	case models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
		return false
	}
	return false
}

func advance(t models.CrossChainTransfer, to models.TransferStatus) (models.CrossChainTransfer, error) {
	if !CanTransition(t.Status, to) {
		return t, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, t.Status, to)
	}
	t.Status = to
	return t, nil
}

// Initiate admits a pending transfer sent from w and moves it to Initiated
// with its fee set. Checks run in order: state, breaker, tokens, amount
// bounds, token limits, wallet ownership, compliance, fee bound.
func (m *Machine) Initiate(t models.CrossChainTransfer, w wallet.Wallet) (models.CrossChainTransfer, error) {
	if t.Status != models.StatusPending {
		return t, fmt.Errorf("%w: initiate requires pending, got %s", ErrInvalidState, t.Status)
	}
	if m.limits.Paused || m.bridge.EmergencyBreaker {
		return t, ErrBridgePaused
	}
	if !m.bridge.HasEnabledToken() {
		return t, ErrNoEnabledTokens
	}
	if t.Amount < m.limits.MinAmount {
		return t, fmt.Errorf("%w: %d below minimum %d", ErrAmountTooLow, t.Amount, m.limits.MinAmount)
	}
	if t.Amount > m.limits.MaxAmount {
		return t, fmt.Errorf("%w: %d above maximum %d", ErrAmountTooHigh, t.Amount, m.limits.MaxAmount)
	}
	if t.TokenAddress != nil {
		if err := m.checkToken(*t.TokenAddress, t.Amount); err != nil {
			return t, err
		}
	}
	if w.Owner != t.Sender {
		return t, fmt.Errorf("%w: wallet not owned by sender", ErrUnauthorized)
	}
	if err := m.gate.CheckTransfer(t.Amount, w.Tier, w.Jurisdiction); err != nil {
		return t, fmt.Errorf("%w: %w", ErrComplianceRequired, err)
	}

	charged := fee.Compute(t.Amount, m.bridge.ProtocolFeeBps, m.bridge.RelayerFee)
	if charged > t.Amount {
		return t, fmt.Errorf("%w: fee %d exceeds amount %d", ErrAmountTooLow, charged, t.Amount)
	}
	t.Fee = charged
	return advance(t, models.StatusInitiated)
}

func (m *Machine) checkToken(mint domain.Identity, amount uint64) error {
	token, ok := m.bridge.Token(mint)
	if !ok || !token.Enabled {
		return fmt.Errorf("%w: %s", ErrUnsupportedToken, mint)
	}
	if amount < token.MinTransfer {
		return fmt.Errorf("%w: %d below %s minimum %d", ErrAmountTooLow, amount, token.Symbol, token.MinTransfer)
	}
	if token.MaxTransfer != 0 && amount > token.MaxTransfer {
		return fmt.Errorf("%w: %d above %s maximum %d", ErrAmountTooHigh, amount, token.Symbol, token.MaxTransfer)
	}
	return nil
}

// Confirm moves an initiated transfer to Confirmed once the confirmations
// reach required. On a quorum failure the transfer is returned unchanged.
func (m *Machine) Confirm(t models.CrossChainTransfer, confirmations []models.RelayConfirmation, required uint8) (models.CrossChainTransfer, error) {
	if t.Status != models.StatusInitiated {
		return t, fmt.Errorf("%w: confirm requires initiated, got %s", ErrInvalidState, t.Status)
	}
	for i, c := range confirmations {
		if err := c.Validate(); err != nil {
			return t, fmt.Errorf("confirmation %d: %w", i, err)
		}
	}
	if err := quorum.Verify(confirmations, required); err != nil {
		return t, fmt.Errorf("%w: %w", ErrInsufficientConfirmations, err)
	}
	return advance(t, models.StatusConfirmed)
}

// Complete finalizes a confirmed transfer. Only the configured bridge
// authority may complete; authorization is checked before state.
func (m *Machine) Complete(t models.CrossChainTransfer, authority domain.Identity) (models.CrossChainTransfer, error) {
	if !domain.Is(m.limits.Authority, authority) {
		return t, fmt.Errorf("%w: %s is not the bridge authority", ErrUnauthorized, authority)
	}
	if t.Status != models.StatusConfirmed {
		return t, fmt.Errorf("%w: complete requires confirmed, got %s", ErrInvalidState, t.Status)
	}
	return advance(t, models.StatusCompleted)
}

// Cancel moves a pending or initiated transfer to Cancelled. Cancelling a
// cancelled transfer is a no-op.
func (m *Machine) Cancel(t models.CrossChainTransfer) (models.CrossChainTransfer, error) {
	return settle(t, models.StatusCancelled)
}

// Fail moves any non-terminal transfer to Failed. Failing a failed
// transfer is a no-op.
func (m *Machine) Fail(t models.CrossChainTransfer) (models.CrossChainTransfer, error) {
	return settle(t, models.StatusFailed)
}

func settle(t models.CrossChainTransfer, to models.TransferStatus) (models.CrossChainTransfer, error) {
	if t.Status == to {
		return t, nil
	}
	return advance(t, to)
}
