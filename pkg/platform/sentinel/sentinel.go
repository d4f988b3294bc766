package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about records, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a uniqueness constraint rejected the write
// - ErrAlreadyUsed: single-use record (deep-link token) already consumed
// - ErrRetryExhausted: transaction kept losing write conflicts
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyUsed    = errors.New("already used")
	ErrRetryExhausted = errors.New("transaction retries exhausted")
	ErrUnavailable    = errors.New("unavailable")
)
