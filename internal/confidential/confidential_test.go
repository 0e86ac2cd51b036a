package confidential

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	strict := Policy{EncryptionRequired: true, ProofRequired: true, MaxCiphertextSize: 16}
	lenient := Policy{MaxCiphertextSize: 16}

	full := Request{
		EncryptedPayload: []byte("enc"),
		Ciphertext:       []byte("ct"),
		Proof:            []byte("proof"),
		PublicInputs:     []byte("in"),
	}

	tests := []struct {
		name    string
		mutate  func(*Request)
		policy  Policy
		wantErr error
	}{
		{"complete request passes", func(*Request) {}, strict, nil},
		{"empty proof with payload", func(r *Request) { r.Proof = nil }, strict, ErrProofRequired},
		{"empty payload", func(r *Request) { r.EncryptedPayload = nil }, strict, ErrPayloadRequired},
		{"payload checked before proof", func(r *Request) { r.EncryptedPayload, r.Proof = nil, nil }, strict, ErrPayloadRequired},
		{"ciphertext at limit", func(r *Request) { r.Ciphertext = bytes.Repeat([]byte{1}, 16) }, strict, nil},
		{"ciphertext over limit", func(r *Request) { r.Ciphertext = bytes.Repeat([]byte{1}, 17) }, strict, ErrCiphertextTooLarge},
		{"lenient policy accepts bare request", func(r *Request) { *r = Request{} }, lenient, nil},
		{"lenient policy still bounds size", func(r *Request) { r.Ciphertext = bytes.Repeat([]byte{1}, 17) }, lenient, ErrCiphertextTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := full
			tt.mutate(&req)
			err := Validate(req, tt.policy)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.EncryptionRequired)
	assert.True(t, p.ProofRequired)
	assert.Equal(t, 1024, p.MaxCiphertextSize)
}

func TestCreateEncryptedPayload(t *testing.T) {
	plain := []byte("secret")
	out, err := CreateEncryptedPayload(plain, []byte("pk"))
	require.NoError(t, err)
	assert.Equal(t, plain, out)
	out[0] = 'X'
	assert.Equal(t, byte('s'), plain[0])

	_, err = CreateEncryptedPayload(nil, []byte("pk"))
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = CreateEncryptedPayload(plain, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestVerifyProof(t *testing.T) {
	assert.NoError(t, VerifyProof([]byte("p"), []byte("i")))
	assert.ErrorIs(t, VerifyProof(nil, []byte("i")), ErrEmptyInput)
	assert.ErrorIs(t, VerifyProof([]byte("p"), nil), ErrEmptyInput)
}

func TestEncryptedWalletState_Validate(t *testing.T) {
	state := EncryptedWalletState{
		EncryptedBalance:     []byte("b"),
		EncryptedNonce:       []byte("n"),
		CiphertextCommitment: []byte("c"),
		EncryptionPublicKey:  []byte("k"),
	}
	require.NoError(t, state.Validate(DefaultPolicy()))

	state.CiphertextCommitment = nil
	assert.ErrorIs(t, state.Validate(DefaultPolicy()), ErrMissingCommitment)
}

func TestTransferProof_Validate(t *testing.T) {
	proof := TransferProof{
		ZeroBalanceProof:    []byte("z"),
		RangeProof:          []byte("r"),
		Ciphertext:          []byte("c"),
		PublicEncryptionKey: []byte("k"),
	}
	require.NoError(t, proof.Validate(DefaultPolicy()))

	proof.RangeProof = nil
	assert.ErrorIs(t, proof.Validate(DefaultPolicy()), ErrProofRequired)
}

func TestOperation_JSON(t *testing.T) {
	out, err := json.Marshal(Request{Operation: OpEncryptedSwap})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"operation":"encrypted_swap"`)

	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"operation":"encrypted_vote"}`), &req))
	assert.Equal(t, OpEncryptedVote, req.Operation)
}
