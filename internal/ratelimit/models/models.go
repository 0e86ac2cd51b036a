// Package models holds the rate limiting vocabulary shared by stores and
// middleware.
package models

import (
	"net/http"
	"time"

	"bridgehub/pkg/domain"
)

// EndpointClass groups endpoints that share a request budget.
type EndpointClass string

const (
	ClassRead  EndpointClass = "read"
	ClassWrite EndpointClass = "write"
)

// ClassFor maps an HTTP method to its class. Safe methods are reads.
func ClassFor(method string) EndpointClass {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ClassRead
	default:
		return ClassWrite
	}
}

// Limit is a sliding-window budget.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// CallerKey is the bucket key for a caller's requests in class. Identities
// render as hex, so they cannot contain the ':' delimiter.
func CallerKey(caller domain.Identity, class EndpointClass) string {
	return "ratelimit:caller:" + caller.String() + ":" + string(class)
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, with
// a floor of one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
