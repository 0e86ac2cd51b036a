package hub

import (
	"errors"

	"bridgehub/internal/bridge/envelope"
	"bridgehub/internal/bridge/models"
	"bridgehub/internal/bridge/quorum"
	"bridgehub/internal/bridge/transfer"
	"bridgehub/internal/compliance"
	"bridgehub/internal/compliance/policy"
	"bridgehub/internal/confidential"
	"bridgehub/internal/wallet"
	dErrors "bridgehub/pkg/domain-errors"
	"bridgehub/pkg/platform/sentinel"
)

// Hub-level failures.
var (
	ErrNotInitialized      = errors.New("hub not initialized")
	ErrAlreadyInitialized  = errors.New("hub already initialized")
	ErrInvalidConfig       = errors.New("invalid hub configuration")
	ErrUnauthorized        = errors.New("caller does not hold the required role")
	ErrWalletExists        = errors.New("wallet already registered")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransferNotFound    = errors.New("transfer not found")
	ErrDuplicateNonce      = errors.New("nonce already used by sender")
	ErrUnsupportedChain    = errors.New("chain not supported")
	ErrStaleConfirmation   = errors.New("relay confirmation too old")
	ErrInvalidSignature    = errors.New("signature verification failed")
	ErrInvalidProof        = errors.New("proof verification failed")
	ErrInvalidProgram      = errors.New("confidential program mismatch")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNotifierUnavailable = errors.New("relay notifier unavailable")
	ErrConcurrentUpdate    = errors.New("transfer modified concurrently")
)

type mapping struct {
	err     error
	code    dErrors.Code
	status  string
	message string
}

// Order matters: a transfer-layer error wraps its lower-layer cause, and
// the outermost meaning must win.
var mappings = []mapping{
	{transfer.ErrBridgePaused, dErrors.CodeUnavailable, "BRIDGE_PAUSED", "bridge is paused"},
	{transfer.ErrNoEnabledTokens, dErrors.CodeUnavailable, "NO_ENABLED_TOKENS", "no tokens are enabled"},
	{transfer.ErrUnsupportedToken, dErrors.CodeValidation, "UNSUPPORTED_TOKEN", "token is not supported"},
	{transfer.ErrAmountTooLow, dErrors.CodeValidation, "AMOUNT_TOO_LOW", "amount is below the minimum"},
	{transfer.ErrAmountTooHigh, dErrors.CodeValidation, "AMOUNT_TOO_HIGH", "amount is above the maximum"},
	{transfer.ErrComplianceRequired, dErrors.CodeComplianceFailed, "COMPLIANCE_REQUIRED", "compliance check failed"},
	{transfer.ErrUnauthorized, dErrors.CodeForbidden, "UNAUTHORIZED", "caller is not authorized"},
	{transfer.ErrInvalidState, dErrors.CodeInvalidState, "INVALID_STATE", "transfer is not in a valid state for this operation"},
	{transfer.ErrInsufficientConfirmations, dErrors.CodeValidation, "INSUFFICIENT_CONFIRMATIONS", "not enough relay confirmations"},

	{envelope.ErrMalformed, dErrors.CodeInvalidInput, "MALFORMED", "malformed envelope"},

	{compliance.ErrNotQscd, dErrors.CodeComplianceFailed, "NOT_QSCD", "certificate not issued on a qualified device"},
	{compliance.ErrNotYetValid, dErrors.CodeComplianceFailed, "NOT_YET_VALID", "certificate is not yet valid"},
	{compliance.ErrExpired, dErrors.CodeComplianceFailed, "EXPIRED", "certificate or record has expired"},
	{compliance.ErrJurisdictionRestricted, dErrors.CodeForbidden, "JURISDICTION_RESTRICTED", "jurisdiction is restricted"},
	{compliance.ErrComplianceRequired, dErrors.CodeComplianceFailed, "COMPLIANCE_REQUIRED", "compliance verification required"},
	{compliance.ErrTierLimitExceeded, dErrors.CodeComplianceFailed, "TIER_LIMIT_EXCEEDED", "compliance tier limit exceeded"},
	{compliance.ErrMissingTimestamp, dErrors.CodeValidation, "MISSING_TIMESTAMP", "qualified signature has no timestamp"},
	{compliance.ErrUnsupportedHash, dErrors.CodeValidation, "UNSUPPORTED_HASH", "unsupported hash algorithm"},

	{confidential.ErrPayloadRequired, dErrors.CodeValidation, "PAYLOAD_REQUIRED", "encrypted payload is required"},
	{confidential.ErrProofRequired, dErrors.CodeValidation, "PROOF_REQUIRED", "proof is required"},
	{confidential.ErrCiphertextTooLarge, dErrors.CodeValidation, "CIPHERTEXT_TOO_LARGE", "ciphertext is too large"},
	{confidential.ErrEmptyInput, dErrors.CodeValidation, "EMPTY_INPUT", "input must not be empty"},
	{confidential.ErrMissingCommitment, dErrors.CodeValidation, "MISSING_COMMITMENT", "commitment is required"},

	{quorum.ErrInsufficientConfirmations, dErrors.CodeValidation, "INSUFFICIENT_CONFIRMATIONS", "not enough relay confirmations"},
	{models.ErrSignerMismatch, dErrors.CodeValidation, "SIGNER_MISMATCH", "signature and signer lists differ"},

	{wallet.ErrTierRequired, dErrors.CodeComplianceFailed, "TIER_REQUIRED", "wallet has no compliance tier"},
	{wallet.ErrTierLimitExceeded, dErrors.CodeComplianceFailed, "TIER_LIMIT_EXCEEDED", "wallet tier limit exceeded"},
	{wallet.ErrDailyLimitExceeded, dErrors.CodeValidation, "DAILY_LIMIT_EXCEEDED", "daily transfer limit exceeded"},
	{wallet.ErrChainNotAllowed, dErrors.CodeValidation, "CHAIN_NOT_ALLOWED", "chain not allowed for wallet"},

	{policy.ErrDenied, dErrors.CodeForbidden, "POLICY_DENIED", "transfer denied by policy"},

	{ErrNotInitialized, dErrors.CodeInvalidState, "NOT_INITIALIZED", "hub is not initialized"},
	{ErrAlreadyInitialized, dErrors.CodeConflict, "ALREADY_INITIALIZED", "hub is already initialized"},
	{ErrInvalidConfig, dErrors.CodeValidation, "INVALID_CONFIG", "invalid hub configuration"},
	{ErrUnauthorized, dErrors.CodeForbidden, "UNAUTHORIZED", "caller is not authorized"},
	{ErrWalletExists, dErrors.CodeConflict, "WALLET_EXISTS", "wallet already registered"},
	{ErrWalletNotFound, dErrors.CodeNotFound, "WALLET_NOT_FOUND", "wallet not found"},
	{ErrTransferNotFound, dErrors.CodeNotFound, "TRANSFER_NOT_FOUND", "transfer not found"},
	{ErrDuplicateNonce, dErrors.CodeConflict, "DUPLICATE_NONCE", "nonce already used"},
	{ErrUnsupportedChain, dErrors.CodeValidation, "UNSUPPORTED_CHAIN", "chain not supported"},
	{ErrStaleConfirmation, dErrors.CodeValidation, "STALE_CONFIRMATION", "relay confirmation too old"},
	{ErrInvalidSignature, dErrors.CodeUnauthorized, "INVALID_SIGNATURE", "signature verification failed"},
	{ErrInvalidProof, dErrors.CodeValidation, "INVALID_PROOF", "proof verification failed"},
	{ErrInvalidProgram, dErrors.CodeValidation, "INVALID_PROGRAM", "confidential program mismatch"},
	{ErrInvalidRequest, dErrors.CodeBadRequest, "INVALID_REQUEST", "invalid request"},
	{ErrNotifierUnavailable, dErrors.CodeUnavailable, "NOTIFIER_UNAVAILABLE", "relay notifier unavailable"},
	{ErrConcurrentUpdate, dErrors.CodeConflict, "CONCURRENT_UPDATE", "transfer modified concurrently"},

	{sentinel.ErrNotFound, dErrors.CodeNotFound, "NOT_FOUND", "not found"},
	{sentinel.ErrConflict, dErrors.CodeConflict, "CONFLICT", "conflict"},
	{sentinel.ErrInvalidState, dErrors.CodeInvalidState, "INVALID_STATE", "invalid state"},
	{sentinel.ErrUnavailable, dErrors.CodeUnavailable, "UNAVAILABLE", "dependency unavailable"},
}

func lookup(err error) (mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return mapping{}, false
}

// StatusOf returns the external status name for err, e.g.
// "JURISDICTION_RESTRICTED". Unknown errors are "INTERNAL".
func StatusOf(err error) string {
	if err == nil {
		return "OK"
	}
	if m, ok := lookup(err); ok {
		return m.status
	}
	return "INTERNAL"
}

// Translate attaches the domain error code of the first mapped error in the
// chain of err. Unmapped errors that already carry a code are returned
// unchanged; anything else becomes CodeInternal.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if m, ok := lookup(err); ok {
		return dErrors.Wrap(err, m.code, m.message)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}
