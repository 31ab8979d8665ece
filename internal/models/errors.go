package models

import "errors"

var (
	// ErrLimitExceeded is returned when a debit would push an account
	// balance below -limit. The account state is left unchanged.
	ErrLimitExceeded = errors.New("limit-exceeded")

	// ErrAccountNotFound is returned for operations on an account id
	// that neither the cache nor the ledger knows about.
	ErrAccountNotFound = errors.New("account-not-found")

	// ErrCacheUnavailable is returned when the cache channel is down or
	// the authority did not reply within the configured wait. Callers
	// must treat the operation as not applied.
	ErrCacheUnavailable = errors.New("cache-unavailable")
)
