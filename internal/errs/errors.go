// Package errs defines the domain error taxonomy shared across the lead
// pipeline and the quote pricing engine.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError indicates malformed or unparsable input: an empty company
// name, a phone number that cannot be normalized, an unknown accessorial code.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError indicates a missing lookup-table or registry entry.
type NotFoundError struct {
	Kind string // "rate", "lane", "registry", ...
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// NewNotFound creates a NotFoundError.
func NewNotFound(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// StaleDataError is returned only in strict-freshness mode when a market
// snapshot is older than the configured maximum age.
type StaleDataError struct {
	Age    time.Duration
	MaxAge time.Duration
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("stale market data: age %s exceeds max %s", e.Age, e.MaxAge)
}

// ExternalServiceError wraps a failure from a lead-source, registry, routing,
// or market-data collaborator.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternal wraps err as an ExternalServiceError for the named service.
func NewExternal(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}

// IsValidation reports whether err (or any error in its chain) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStaleData reports whether err is a StaleDataError.
func IsStaleData(err error) bool {
	var se *StaleDataError
	return errors.As(err, &se)
}

// IsExternal reports whether err is an ExternalServiceError.
func IsExternal(err error) bool {
	var ee *ExternalServiceError
	return errors.As(err, &ee)
}
