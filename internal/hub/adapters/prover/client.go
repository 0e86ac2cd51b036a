// Package prover verifies confidential-transaction proofs against a remote
// proving service over HTTP.
package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bridgehub/pkg/domain"
	"bridgehub/pkg/platform/sentinel"
)

const verifyPath = "/api/proof/verify"

var ErrRejected = errors.New("proof rejected by prover")

type verifyRequest struct {
	Program      string `json:"program"`
	Proof        []byte `json:"proof"`
	PublicInputs []byte `json:"public_inputs"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) VerifyProof(ctx context.Context, program domain.Identity, proof, publicInputs []byte) error {
	body, err := json.Marshal(verifyRequest{
		Program:      program.String(),
		Proof:        proof,
		PublicInputs: publicInputs,
	})
	if err != nil {
		return fmt.Errorf("marshal verify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: prover: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read prover response: %w", sentinel.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: prover returned status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var out verifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode prover response: %w", err)
	}
	if !out.Valid {
		return fmt.Errorf("%w: %s", ErrRejected, out.Reason)
	}
	return nil
}
