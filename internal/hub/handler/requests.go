package handler

import (
	"bridgehub/internal/bridge/models"
	"bridgehub/internal/compliance"
)

type RegisterWalletRequest struct {
	PublicKey []byte `json:"public_key"`
	Metadata  []byte `json:"metadata,omitempty"`
}

type ConfirmRequest struct {
	Confirmations []models.RelayConfirmation `json:"confirmations"`
}

type FailRequest struct {
	Reason string `json:"reason"`
}

type VerifyQualifiedSignatureRequest struct {
	Signature compliance.QualifiedSignature `json:"signature"`
	// Data, when set, must equal the signed data.
	Data []byte `json:"data,omitempty"`
}

type VerifyQualifiedSignatureResponse struct {
	Valid bool `json:"valid"`
}

type TransfersResponse struct {
	Transfers []models.CrossChainTransfer `json:"transfers"`
}
