/*
errors.go - Centralized error types for the fund engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Workflow packages return these (or wrap them) so callers can map every
  failure to a specific, user-displayable message.

ERROR CATEGORIES:
  1. Invalid transitions - operation not legal from the current status
  2. Eligibility failures - every unmet condition, collected
  3. Validation failures - malformed input, rejected before any write
  4. Not found - referenced entity does not exist
  5. Store errors - idempotency and optimistic-concurrency conflicts

USAGE:
  if errors.Is(err, generic.ErrInvalidTransition) {
      var ite *generic.InvalidTransitionError
      errors.As(err, &ite)
      ...
  }

SEE ALSO:
  - ledger.go: Uses ErrDuplicateIdempotencyKey, ValidationError
  - welfare/*: Workflow guards return InvalidTransitionError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an operation is not legal from
	// the entity's current status.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrIneligible is returned when eligibility rules block an operation.
	ErrIneligible = errors.New("eligibility requirements not met")

	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a uniqueness rule would be violated
	// (second open cashout, duplicate enrollment).
	ErrConflict = errors.New("conflict")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrConcurrentModification is returned when a status-guarded update
	// finds the row no longer in the expected status.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError explains why a status change was refused.
type InvalidTransitionError struct {
	Entity  string   // "cashout request", "loan", ...
	ID      int64
	Action  string   // "reject", "disburse", ...
	Current string   // current status
	Allowed []string // statuses the action is legal from
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s %s %d: status is %s", e.Action, e.Entity, e.ID, e.Current)
	if len(e.Allowed) > 0 {
		msg += fmt.Sprintf(" (allowed from: %s)", strings.Join(e.Allowed, ", "))
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// EligibilityError lists every unmet condition so the caller can show all
// of them at once.
type EligibilityError struct {
	Subject string
	Issues  []string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("%s is not eligible: %s", e.Subject, strings.Join(e.Issues, "; "))
}

func (e *EligibilityError) Unwrap() error {
	return ErrIneligible
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError describes a uniqueness violation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input
// or a request that the current state cannot satisfy.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrIneligible) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
