package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen matches every *CircuitOpenError via errors.Is.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrDuplicateKey is returned by Store.Insert when (provider, providerId) already exists.
	ErrDuplicateKey = errors.New("duplicate posting key")

	// ErrStoreUnavailable marks a store failure that aborts an aggregation run.
	ErrStoreUnavailable = errors.New("posting store unavailable")
)

// TransportError is a network-level failure talking to a provider (dial, timeout, reset).
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError is a non-2xx status or an unparseable payload from a provider.
// StatusCode is zero when the status was fine but the body could not be decoded.
type ResponseError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *ResponseError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s response: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s response: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// CircuitOpenError is returned without calling the provider while its breaker is open.
type CircuitOpenError struct {
	Provider string
	RetryAt  time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s: circuit open until %s", e.Provider, e.RetryAt.Format(time.RFC3339))
}

func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// IsProviderError reports whether err came from a provider call rather than
// from the caller's context.
func IsProviderError(err error) bool {
	var te *TransportError
	var re *ResponseError
	return errors.As(err, &te) || errors.As(err, &re) || errors.Is(err, ErrCircuitOpen)
}
