// Package errors provides domain-specific error types and sentinel errors
// for the recommendation pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrDataUnavailable indicates the location list is missing or malformed.
	ErrDataUnavailable = errors.New("location data unavailable")

	// ErrEmptyStore indicates the location list loaded but holds no points.
	ErrEmptyStore = errors.New("location store is empty")

	// ErrUpstreamUnavailable indicates the places service failed, timed out,
	// or answered with an error status.
	ErrUpstreamUnavailable = errors.New("places upstream unavailable")

	// ErrPlaceNotFound indicates the places service no longer knows a
	// place returned by an earlier search. It concerns one result, not the
	// service, and does not match ErrUpstreamUnavailable.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrReplyDelivery indicates the reply could not be delivered to LINE.
	ErrReplyDelivery = errors.New("reply delivery failed")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// IsDataUnavailable reports whether err is or wraps ErrDataUnavailable.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrDataUnavailable)
}

// IsEmptyStore reports whether err is or wraps ErrEmptyStore.
func IsEmptyStore(err error) bool {
	return errors.Is(err, ErrEmptyStore)
}

// IsUpstreamUnavailable reports whether err is or wraps ErrUpstreamUnavailable.
func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsPlaceNotFound reports whether err is or wraps ErrPlaceNotFound.
func IsPlaceNotFound(err error) bool {
	return errors.Is(err, ErrPlaceNotFound)
}

// IsRateLimitExceeded reports whether err is or wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// UpstreamError represents a failed call to the places web service.
// Status carries the service-level status string (e.g. REQUEST_DENIED)
// when the HTTP exchange itself succeeded.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Status     string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status != "":
		return fmt.Sprintf("upstream error (op=%s, status=%s): %v", e.Operation, e.Status, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("upstream error (op=%s, http=%d): %v", e.Operation, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("upstream error (op=%s): %v", e.Operation, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes every UpstreamError match ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// NewUpstreamError creates a new upstream error.
func NewUpstreamError(operation string, statusCode int, status string, err error) *UpstreamError {
	return &UpstreamError{
		Operation:  operation,
		StatusCode: statusCode,
		Status:     status,
		Err:        err,
	}
}
