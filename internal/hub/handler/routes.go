package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bridgehub/internal/compliance"
	"bridgehub/internal/confidential"
	"bridgehub/internal/hub"
	"bridgehub/pkg/platform/httputil"
)

func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config(r.Context())
	if err != nil {
		h.fail(w, r, "get config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[hub.Config](h, w, r)
	if !ok {
		return
	}
	cfg, err := h.service.InitializeHub(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, "initialize hub", err)
		return
	}
	h.logger.InfoContext(r.Context(), "hub initialized", "admin", caller.String())
	httputil.WriteJSON(w, http.StatusCreated, cfg)
}

func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[hub.Config](h, w, r)
	if !ok {
		return
	}
	cfg, err := h.service.UpdateConfig(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, "update config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// ===== Wallets

func (h *Handler) HandleRegisterWallet(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[RegisterWalletRequest](h, w, r)
	if !ok {
		return
	}
	wal, err := h.service.RegisterWallet(r.Context(), caller, req.PublicKey, req.Metadata)
	if err != nil {
		h.fail(w, r, "register wallet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, wal)
}

func (h *Handler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathIdentity(w, r, "owner")
	if !ok {
		return
	}
	wal, err := h.service.Wallet(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "get wallet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wal)
}

func (h *Handler) HandleSignTransaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[hub.TransactionSignatureData](h, w, r)
	if !ok {
		return
	}
	receipt, err := h.service.SignTransaction(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, "sign transaction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) HandleVerifyCompliance(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	owner, ok := pathIdentity(w, r, "owner")
	if !ok {
		return
	}
	rec, ok := decode[compliance.Record](h, w, r)
	if !ok {
		return
	}
	wal, err := h.service.VerifyCompliance(r.Context(), caller, owner, rec)
	if err != nil {
		h.fail(w, r, "verify compliance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wal)
}

// ===== Transfers

// undelivered reports a state change that was persisted but not announced.
// The client gets 202 with the transfer and may call publish later.
func undelivered(err error) bool {
	return errors.Is(err, hub.ErrNotifierUnavailable)
}

func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[hub.InitiateRequest](h, w, r)
	if !ok {
		return
	}
	t, err := h.service.InitiateCrossChain(r.Context(), caller, req)
	if undelivered(err) {
		h.logger.WarnContext(r.Context(), "transfer initiated without notification",
			"transfer_id", t.ID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusAccepted, t)
		return
	}
	if err != nil {
		h.fail(w, r, "initiate transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) HandleGetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Transfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleTransfersBySender(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathIdentity(w, r, "owner")
	if !ok {
		return
	}
	transfers, err := h.service.TransfersBySender(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "list transfers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TransfersResponse{Transfers: transfers})
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[ConfirmRequest](h, w, r)
	if !ok {
		return
	}
	t, err := h.service.ConfirmCrossChain(r.Context(), caller, chi.URLParam(r, "id"), req.Confirmations)
	if err != nil {
		h.fail(w, r, "confirm transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	t, err := h.service.CompleteCrossChain(r.Context(), caller, chi.URLParam(r, "id"))
	if undelivered(err) {
		h.logger.WarnContext(r.Context(), "transfer completed without notification", "transfer_id", t.ID, "error", err)
		httputil.WriteJSON(w, http.StatusAccepted, t)
		return
	}
	if err != nil {
		h.fail(w, r, "complete transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	t, err := h.service.CancelCrossChain(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "cancel transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleFail(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[FailRequest](h, w, r)
	if !ok {
		return
	}
	t, err := h.service.FailCrossChain(r.Context(), caller, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, "fail transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.service.PublishTransfer(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "publish transfer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Qualified signatures and timestamps

func (h *Handler) HandleCreateQualifiedSignature(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[hub.QualifiedSignatureRequest](h, w, r)
	if !ok {
		return
	}
	sig, err := h.service.CreateQualifiedSignature(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, "create qualified signature", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sig)
}

func (h *Handler) HandleVerifyQualifiedSignature(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[VerifyQualifiedSignatureRequest](h, w, r)
	if !ok {
		return
	}
	if err := h.service.VerifyQualifiedSignature(r.Context(), caller, req.Signature, req.Data); err != nil {
		h.fail(w, r, "verify qualified signature", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyQualifiedSignatureResponse{Valid: true})
}

func (h *Handler) HandleCreateTimestamp(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[compliance.TimestampData](h, w, r)
	if !ok {
		return
	}
	ts, err := h.service.CreateTimestamp(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, "create timestamp", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ts)
}

// ===== Confidential

func (h *Handler) HandleConfidential(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := decode[confidential.Request](h, w, r)
	if !ok {
		return
	}
	res, err := h.service.ProcessConfidentialTransaction(r.Context(), caller, req)
	if err != nil {
		h.fail(w, r, "confidential transaction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
