/*
errors.go - Error types for the roastery core

ERROR CATEGORIES:
  1. Not found   - a referenced record (roast batch, sale, adjustment...) is missing
  2. Validation  - bad input shape or a business rule violation
  3. Conflict    - the store refused a write (unique or foreign key violation)

Every failure aborts the current operation; callers roll back their unit of
work. Nothing here is retried.

USAGE:
  if errors.Is(err, roastery.ErrNotFound) { ... }

  var short *roastery.InsufficientInventoryError
  if errors.As(err, &short) {
      log.Printf("only %v g left", short.Available)
  }
*/
package roastery

import (
	"errors"
	"fmt"
	"strconv"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input violates a business rule.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientInventory is returned when a sale asks for more roasted
	// coffee than a batch has left. It is also a validation error.
	ErrInsufficientInventory = errors.New("insufficient roasted inventory")

	// ErrConflict is returned when the store rejects a write because of a
	// uniqueness or reference constraint.
	ErrConflict = errors.New("conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError describes a rejected input.
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

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientInventoryError reports a roast batch shortfall. The message
// always carries the grams still available.
type InsufficientInventoryError struct {
	RoastBatchID int64
	Available    Grams
	Requested    Grams
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("not enough roasted coffee in roast batch %d (available: %sg, requested: %sg)",
		e.RoastBatchID, formatGrams(e.Available), formatGrams(e.Requested))
}

func (e *InsufficientInventoryError) Unwrap() []error {
	return []error{ErrInsufficientInventory, ErrValidation}
}

// ConflictError wraps a store constraint violation.
type ConflictError struct {
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConflictError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConflict}
	}
	return []error{ErrConflict, e.Err}
}

func formatGrams(g Grams) string {
	return strconv.FormatFloat(float64(g), 'f', 0, 64)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict returns true if the store refused the write.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
