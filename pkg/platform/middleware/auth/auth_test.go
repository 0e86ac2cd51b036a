package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgehub/pkg/requestcontext"
)

const subject = "0101010101010101010101010101010101010101010101010101010101010101"

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

func serve(t *testing.T, v JWTValidator, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requestcontext.Caller(r.Context())
		require.True(t, ok)
		seen = caller.String()
		w.WriteHeader(http.StatusNoContent)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	RequireAuth(v, logger)(next).ServeHTTP(rr, req)
	return rr, seen
}

func TestRequireAuth(t *testing.T) {
	t.Run("valid token sets caller", func(t *testing.T) {
		rr, caller := serve(t, stubValidator{claims: &JWTClaims{Subject: "0x" + subject}}, "Bearer tok")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, subject, caller)
	})

	t.Run("missing header", func(t *testing.T) {
		rr, _ := serve(t, stubValidator{}, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), `"error":"unauthorized"`)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rr, _ := serve(t, stubValidator{}, "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr, _ := serve(t, stubValidator{err: errors.New("expired")}, "Bearer tok")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.True(t, strings.Contains(rr.Body.String(), "Invalid or expired token"))
	})

	t.Run("subject not an identity", func(t *testing.T) {
		rr, _ := serve(t, stubValidator{claims: &JWTClaims{Subject: "alice"}}, "Bearer tok")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
