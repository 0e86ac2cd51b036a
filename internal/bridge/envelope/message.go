package envelope

import (
	"bridgehub/internal/bridge/models"
	"bridgehub/pkg/domain"

	"golang.org/x/crypto/sha3"
)

// Encode returns the canonical encoding of msg. Field order: id, source
// chain, destination chain, sender, recipient, kind, payload, nonce, timestamp.
func Encode(msg models.CrossChainMessage) []byte {
	e := NewEncoder(4 + len(msg.ID) + 8 + 8 + 2*domain.IdentitySize + 1 + 4 + len(msg.Payload) + 8 + 8)
	EncodeTo(e, msg)
	return e.Bytes()
}

// EncodeTo appends msg to e.
func EncodeTo(e *Encoder, msg models.CrossChainMessage) {
	e.String(msg.ID)
	e.U64(uint64(msg.SourceChain))
	e.U64(uint64(msg.DestinationChain))
	e.Fixed(msg.Sender[:])
	e.Fixed(msg.Recipient[:])
	e.U8(uint8(msg.Kind))
	e.Var(msg.Payload)
	e.U64(msg.Nonce)
	e.I64(msg.Timestamp)
}

// Decode parses a canonical message encoding. Truncated input, a length
// prefix longer than the remaining input, an unknown kind discriminant and
// trailing bytes all fail with ErrMalformed.
func Decode(b []byte) (models.CrossChainMessage, error) {
	d := NewDecoder(b)
	msg := DecodeFrom(d)
	if err := d.Finish(); err != nil {
		return models.CrossChainMessage{}, err
	}
	return msg, nil
}

// DecodeFrom reads one message from d. Check d.Err afterwards.
func DecodeFrom(d *Decoder) models.CrossChainMessage {
	var msg models.CrossChainMessage
	msg.ID = d.String("id")
	msg.SourceChain = domain.ChainID(d.U64("source_chain"))
	msg.DestinationChain = domain.ChainID(d.U64("destination_chain"))
	copy(msg.Sender[:], d.Fixed(domain.IdentitySize, "sender"))
	copy(msg.Recipient[:], d.Fixed(domain.IdentitySize, "recipient"))
	kind := models.MessageKind(d.U8("message_kind"))
	if d.Err() == nil && !kind.IsValid() {
		d.err = malformed("unknown message kind %d", uint8(kind))
	}
	msg.Kind = kind
	msg.Payload = d.Var("payload")
	msg.Nonce = d.U64("nonce")
	msg.Timestamp = d.I64("timestamp")
	return msg
}

// Digest is the keccak-256 hash of the canonical encoding of msg. Relayers
// sign this value.
func Digest(msg models.CrossChainMessage) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(Encode(msg))
	var out [32]byte
	h.Sum(out[:0])
	return out
}
