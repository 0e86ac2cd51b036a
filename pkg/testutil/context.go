package testutil

import (
	"context"
	"net/http"

	"bridgehub/pkg/domain"
	"bridgehub/pkg/requestcontext"
)

// WithCaller marks the request as authenticated by caller, as the auth
// middleware does after validating a bearer token.
func WithCaller(req *http.Request, caller domain.Identity) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRequestID sets the request id normally assigned by middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
