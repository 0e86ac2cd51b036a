package envelope

import (
	"golang.org/x/crypto/sha3"

	"bridgehub/internal/bridge/models"
	"bridgehub/pkg/domain"
)

// EncodeTransfer is the payload of TokenTransfer and TokenReceive messages:
// amount, fee, optional token address and transfer id.
func EncodeTransfer(t models.CrossChainTransfer) []byte {
	e := NewEncoder(8 + 8 + 1 + domain.IdentitySize + 4 + len(t.ID))
	e.U64(t.Amount)
	e.U64(t.Fee)
	e.Option(t.TokenAddress != nil, func(e *Encoder) { e.Fixed(t.TokenAddress[:]) })
	e.String(t.ID)
	return e.Bytes()
}

// TransferPayload is the decoded form of EncodeTransfer.
type TransferPayload struct {
	Amount       uint64
	Fee          uint64
	TokenAddress *domain.Identity
	TransferID   string
}

func DecodeTransfer(b []byte) (TransferPayload, error) {
	var p TransferPayload
	d := NewDecoder(b)
	p.Amount = d.U64("amount")
	p.Fee = d.U64("fee")
	d.Option("token_address", func(d *Decoder) {
		var token domain.Identity
		copy(token[:], d.Fixed(domain.IdentitySize, "token_address"))
		p.TokenAddress = &token
	})
	p.TransferID = d.String("transfer_id")
	if err := d.Finish(); err != nil {
		return TransferPayload{}, err
	}
	return p, nil
}

// MessageFor builds the relay message announcing t. The payload is the
// canonical transfer payload.
func MessageFor(id string, kind models.MessageKind, t models.CrossChainTransfer) models.CrossChainMessage {
	return models.CrossChainMessage{
		ID:               id,
		SourceChain:      t.SourceChain,
		DestinationChain: t.DestinationChain,
		Sender:           t.Sender,
		Recipient:        t.Recipient,
		Kind:             kind,
		Payload:          EncodeTransfer(t),
		Nonce:            t.Nonce,
		Timestamp:        t.Timestamp,
	}
}

// ConfirmationDigest is the value each signer of a relay confirmation signs:
// keccak-256 over the transfer id, the external transaction hash, the block
// number and the confirmation timestamp, encoded canonically.
func ConfirmationDigest(transferID string, c models.RelayConfirmation) [32]byte {
	e := NewEncoder(4 + len(transferID) + 4 + len(c.TxHash) + 8 + 8)
	e.String(transferID)
	e.Var(c.TxHash)
	e.U64(c.BlockNumber)
	e.I64(c.Timestamp)

	h := sha3.NewLegacyKeccak256()
	h.Write(e.Bytes())
	var out [32]byte
	h.Sum(out[:0])
	return out
}
