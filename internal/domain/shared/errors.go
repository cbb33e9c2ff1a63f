// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// ErrNotFound: unknown user, profile or university.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists: dependent records were already generated for the pair.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrPreconditionFailed: the user's inferred stage does not allow the action.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvariantViolation: the mutation would break a ledger invariant.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrAmbiguousConfirmation: free-text confirmation is neither yes nor no.
	ErrAmbiguousConfirmation = errors.New("ambiguous confirmation")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "ledger", "university", "profile"
	Op      string // Operation that failed, e.g., "Lock", "Unlock"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Profile domain errors
var (
	ErrUserNotFound    = NewDomainError("profile", "FindUser", ErrNotFound, "user not found")
	ErrProfileNotFound = NewDomainError("profile", "FindProfile", ErrNotFound, "profile not found")
)

// University domain errors
var (
	ErrUniversityNotFound = NewDomainError("university", "Find", ErrNotFound, "university not found")
)

// Ledger domain errors
var (
	ErrEntryNotFound         = NewDomainError("ledger", "FindEntry", ErrNotFound, "university is not on the shortlist")
	ErrEntryNotLocked        = NewDomainError("ledger", "Unlock", ErrPreconditionFailed, "university is not locked")
	ErrMultipleLocked        = NewDomainError("ledger", "Lock", ErrInvariantViolation, "more than one locked university")
	ErrTasksAlreadyExist     = NewDomainError("ledger", "GenerateTasks", ErrAlreadyExists, "tasks already exist for this university")
	ErrTasksRequireLock      = NewDomainError("ledger", "GenerateTasks", ErrPreconditionFailed, "tasks can only be generated for the locked university")
	ErrDocumentsRequireEntry = NewDomainError("ledger", "GenerateDocuments", ErrInvariantViolation, "documents require a shortlist entry")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsPreconditionFailed checks if the error is a stage gate violation.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

// IsInvariantViolation checks if the error reports a broken ledger invariant.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsAmbiguousConfirmation checks if the confirmation text could not be parsed.
func IsAmbiguousConfirmation(err error) bool {
	return errors.Is(err, ErrAmbiguousConfirmation)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput)
}

// IsUserFacing reports whether the error is an expected outcome that should be
// rendered as guidance rather than as a system failure.
func IsUserFacing(err error) bool {
	return IsPreconditionFailed(err) ||
		IsAmbiguousConfirmation(err) ||
		IsNotFound(err) ||
		IsAlreadyExists(err)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
