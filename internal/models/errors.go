package models

import (
	"errors"
	"fmt"
)

// ProviderUnavailableError indicates a transport or HTTP-level failure when
// calling an upstream price provider. The acquisition chain falls through to
// the next adapter when it sees this error.
type ProviderUnavailableError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable for %s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// DataIncompleteError indicates the provider responded but the response
// yielded no usable rows. Not retried at the transport layer.
type DataIncompleteError struct {
	Provider string
	Symbol   string
	Reason   string
}

func (e *DataIncompleteError) Error() string {
	return fmt.Sprintf("provider %s returned no usable rows for %s: %s", e.Provider, e.Symbol, e.Reason)
}

// PersistenceError indicates a store write failed. It aborts the remaining
// writes for the current asset only; earlier writes stand (each is
// independently idempotent).
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s (%s): %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigurationError indicates a missing or invalid configuration value,
// e.g. no CSV source URLs for the fixed-income adapter. Never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Reason)
}

// IsProviderUnavailable reports whether err wraps a ProviderUnavailableError.
func IsProviderUnavailable(err error) bool {
	var pe *ProviderUnavailableError
	return errors.As(err, &pe)
}

// IsDataIncomplete reports whether err wraps a DataIncompleteError.
func IsDataIncomplete(err error) bool {
	var de *DataIncompleteError
	return errors.As(err, &de)
}

// IsConfiguration reports whether err wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
