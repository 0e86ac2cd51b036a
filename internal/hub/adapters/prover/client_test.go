package prover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/sentinel"
)

func TestVerifyProof(t *testing.T) {
	var program domain.Identity
	program[0] = 4

	var got verifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, verifyPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		valid := string(got.Proof) == "good"
		_ = json.NewEncoder(w).Encode(verifyResponse{Valid: valid, Reason: "constraint 7 unsatisfied"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, c.VerifyProof(ctx, program, []byte("good"), []byte("inputs")))
	assert.Equal(t, program.String(), got.Program)
	assert.Equal(t, []byte("inputs"), got.PublicInputs)

	err := c.VerifyProof(ctx, program, []byte("bad"), []byte("inputs"))
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorContains(t, err, "constraint 7")
}

func TestVerifyProof_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).VerifyProof(context.Background(), domain.Identity{}, []byte("p"), nil)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
