package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProviderAvailable indicates that no provider is registered for a capability.
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrAllCandidatesZeroScored indicates that every candidate breached a hard constraint.
	ErrAllCandidatesZeroScored = errors.New("all candidates violate selection constraints")

	// ErrProviderExecution indicates that a provider call failed.
	ErrProviderExecution = errors.New("provider execution failed")

	// ErrFailoverExhausted indicates that the retry budget was consumed without a success.
	ErrFailoverExhausted = errors.New("failover exhausted")

	// ErrInvalidRequestShape indicates that a payload does not match its capability tag.
	ErrInvalidRequestShape = errors.New("invalid request shape")

	// ErrProviderNotFound indicates that no provider or live metrics entry has the given id.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrExecutionNotFound indicates that no execution row has the given id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidRating indicates a user rating outside 0..5.
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
)

// ProviderError is the structured failure of a single provider call.
type ProviderError struct {
	ProviderID     string
	Message        string
	ResponseTimeMs int64
	Cost           float64
	Err            error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.ProviderID, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes every ProviderError match ErrProviderExecution.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderExecution
}

// FailoverExhaustedError reports the last failure after all attempts were used.
type FailoverExhaustedError struct {
	Attempts int
	Last     error
}

func (e *FailoverExhaustedError) Error() string {
	msg := "unknown error"
	if e.Last != nil {
		msg = e.Last.Error()
	}
	return fmt.Sprintf("failed to execute request after %d retries: %s", e.Attempts, msg)
}

// Unwrap returns the last underlying failure.
func (e *FailoverExhaustedError) Unwrap() error {
	return e.Last
}

// Is makes every FailoverExhaustedError match ErrFailoverExhausted.
func (e *FailoverExhaustedError) Is(target error) bool {
	return target == ErrFailoverExhausted
}
