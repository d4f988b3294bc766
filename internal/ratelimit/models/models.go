// Package models holds the rate limiting vocabulary shared by the bucket
// stores and the HTTP middleware.
package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share a budget.
type EndpointClass string

const (
	// ClassRedeem covers deep-link redemption, which accepts anonymous callers.
	ClassRedeem EndpointClass = "redeem"
	// ClassWrite covers every other mutating route.
	ClassWrite EndpointClass = "write"
)

// Limit is a sliding-window budget.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// RateLimitResult is the outcome of one bucket check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the 429 body. It extends the shared error body
// with a retry hint.
type RateLimitExceededResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"`
}

// NewIPRateLimitKey builds the bucket key for a client address and class.
// Colons in IPv6 addresses are kept; the prefix fixes the key shape.
func NewIPRateLimitKey(ip string, class EndpointClass) string {
	if ip == "" {
		ip = "unknown"
	}
	return "ringside:ratelimit:" + string(class) + ":ip:" + strings.ToLower(ip)
}
