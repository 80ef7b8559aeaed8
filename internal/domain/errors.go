package domain

import "errors"

// Sentinel errors shared across layers. Transport maps these to HTTP statuses.
var (
	// ErrInvalidInput signals a malformed request body or field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited signals a sliding-window rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrForbidden signals a failed internal credential check.
	ErrForbidden = errors.New("forbidden")
	// ErrVectorDimMismatch signals an embedding of the wrong dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrProviderUnavailable signals a generation or embedding provider failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderResponse signals unparsable structured output from a provider.
	ErrProviderResponse = errors.New("unexpected provider response")
)
