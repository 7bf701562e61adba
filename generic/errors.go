/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The vending core itself never fails: absent coins, absent products,
  missing stock and short change all resolve to a display state. Errors
  only come from the layers around it (persistence, definitions, input
  decoding).

ERROR CATEGORIES:
  1. Store errors - missing or conflicting machines
  2. Definition errors - malformed machine definitions or snapshots
  3. Input errors - unparseable coin or product input at the edges

USAGE:
  if errors.Is(err, generic.ErrEntityNotFound) {
      // 404
  }

SEE ALSO:
  - store.go: Uses these errors
  - factory/machine.go: ErrInvalidDefinition
  - api/handlers.go: Maps errors to HTTP status
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntityNotFound is returned when a referenced machine doesn't exist.
	ErrEntityNotFound = errors.New("machine not found")

	// ErrDuplicateEntity is returned when creating a machine whose ID is taken.
	ErrDuplicateEntity = errors.New("machine already exists")

	// ErrConcurrentModification is returned when a commit is based on a
	// stale snapshot version.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidSnapshot is returned when a stored snapshot names an item
	// the catalog doesn't know.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrInvalidDefinition is returned when a machine definition fails validation.
	ErrInvalidDefinition = errors.New("invalid machine definition")

	// ErrInvalidInput is returned when request input cannot be decoded.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConflictError provides details about a version conflict on commit.
type ConflictError struct {
	EntityID EntityID
	Stored   int64
	Proposed int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s: stored %d, proposed %d",
		e.EntityID, e.Stored, e.Proposed)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrentModification
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDefinition) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateEntity)
}

// IsNotFound returns true if the error indicates a missing machine.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
