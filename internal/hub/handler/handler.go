// Package handler exposes the hub operations over HTTP. Authentication runs
// in middleware; handlers read the caller from the request context.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bridgehub/internal/bridge/models"
	"bridgehub/internal/compliance"
	"bridgehub/internal/confidential"
	"bridgehub/internal/hub"
	"bridgehub/internal/wallet"
	"bridgehub/pkg/domain"
	dErrors "bridgehub/pkg/domain-errors"
	"bridgehub/pkg/platform/httputil"
	"bridgehub/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Service is the hub service as seen by the HTTP layer.
type Service interface {
	InitializeHub(ctx context.Context, caller domain.Identity, cfg hub.Config) (hub.Config, error)
	UpdateConfig(ctx context.Context, caller domain.Identity, cfg hub.Config) (hub.Config, error)
	Config(ctx context.Context) (hub.Config, error)
	Stats(ctx context.Context) (hub.Stats, error)

	RegisterWallet(ctx context.Context, caller domain.Identity, publicKey, metadata []byte) (wallet.Wallet, error)
	Wallet(ctx context.Context, owner domain.Identity) (wallet.Wallet, error)
	SignTransaction(ctx context.Context, caller domain.Identity, tx hub.TransactionSignatureData) (hub.TransactionReceipt, error)
	VerifyCompliance(ctx context.Context, caller, owner domain.Identity, rec compliance.Record) (wallet.Wallet, error)

	InitiateCrossChain(ctx context.Context, caller domain.Identity, req hub.InitiateRequest) (models.CrossChainTransfer, error)
	ConfirmCrossChain(ctx context.Context, caller domain.Identity, id string, confirmations []models.RelayConfirmation) (models.CrossChainTransfer, error)
	CompleteCrossChain(ctx context.Context, caller domain.Identity, id string) (models.CrossChainTransfer, error)
	CancelCrossChain(ctx context.Context, caller domain.Identity, id string) (models.CrossChainTransfer, error)
	FailCrossChain(ctx context.Context, caller domain.Identity, id, reason string) (models.CrossChainTransfer, error)
	PublishTransfer(ctx context.Context, caller domain.Identity, id string) error
	Transfer(ctx context.Context, id string) (models.CrossChainTransfer, error)
	TransfersBySender(ctx context.Context, sender domain.Identity) ([]models.CrossChainTransfer, error)

	CreateQualifiedSignature(ctx context.Context, caller domain.Identity, req hub.QualifiedSignatureRequest) (compliance.QualifiedSignature, error)
	VerifyQualifiedSignature(ctx context.Context, caller domain.Identity, sig compliance.QualifiedSignature, data []byte) error
	CreateTimestamp(ctx context.Context, caller domain.Identity, req compliance.TimestampData) (compliance.QualifiedTimestamp, error)

	ProcessConfidentialTransaction(ctx context.Context, caller domain.Identity, req confidential.Request) (hub.ConfidentialResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the hub endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/hub/config", h.HandleGetConfig)
	r.Post("/hub/initialize", h.HandleInitialize)
	r.Put("/hub/config", h.HandleUpdateConfig)
	r.Get("/hub/stats", h.HandleStats)

	r.Post("/wallets", h.HandleRegisterWallet)
	r.Get("/wallets/{owner}", h.HandleGetWallet)
	r.Get("/wallets/{owner}/transfers", h.HandleTransfersBySender)
	r.Post("/wallets/{owner}/compliance", h.HandleVerifyCompliance)
	r.Post("/wallets/sign", h.HandleSignTransaction)

	r.Post("/transfers", h.HandleInitiate)
	r.Get("/transfers/{id}", h.HandleGetTransfer)
	r.Post("/transfers/{id}/confirm", h.HandleConfirm)
	r.Post("/transfers/{id}/complete", h.HandleComplete)
	r.Post("/transfers/{id}/cancel", h.HandleCancel)
	r.Post("/transfers/{id}/fail", h.HandleFail)
	r.Post("/transfers/{id}/publish", h.HandlePublish)

	r.Post("/qualified/signatures", h.HandleCreateQualifiedSignature)
	r.Post("/qualified/signatures/verify", h.HandleVerifyQualifiedSignature)
	r.Post("/qualified/timestamps", h.HandleCreateTimestamp)

	r.Post("/confidential/transactions", h.HandleConfidential)
}

// caller returns the authenticated identity or writes 401.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller, ok := requestcontext.Caller(r.Context())
	if !ok || caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.Identity{}, false
	}
	return caller, true
}

func decode[T any](h *Handler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, bodyErrorMessage(err)))
		return v, false
	}
	return v, true
}

func bodyErrorMessage(err error) string {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	if errors.Is(err, io.EOF) {
		return "request body is required"
	}
	return "invalid json request body"
}

func pathIdentity(w http.ResponseWriter, r *http.Request, name string) (domain.Identity, bool) {
	id, err := domain.ParseIdentity(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Identity{}, false
	}
	return id, true
}

// fail writes err with its external status name and logs server faults.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := hub.StatusOf(err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), op+" failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	httputil.WriteErrorWithStatus(w, err, status)
}
