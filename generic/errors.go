/*
errors.go - Centralized error taxonomy for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every error the engine returns belongs to exactly one KIND, which the
  HTTP layer maps to a status code.

ERROR KINDS:
  ErrValidation    Malformed or missing input                 (400)
  ErrUnauthorized  Missing, invalid or expired credential     (401)
  ErrNotFound      Unknown employee or leave request          (404)
  ErrConflict      Duplicate check-in / leave / check-out     (409)
  ErrServerFault   Anything else, including storage failures  (500)

USAGE:
  Named errors wrap a kind, so both checks work:

    errors.Is(err, generic.ErrAlreadyCheckedIn) // specific
    errors.Is(err, generic.ErrConflict)         // kind

  The store returns ErrDuplicateRecord (or *DuplicateDayError) when a
  uniqueness constraint fires; the engine translates it into the
  operation-specific error.

SEE ALSO:
  - store/sqlite/sqlite.go: Maps driver constraint errors into these
  - api/handlers.go: Maps kinds to HTTP status
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// KINDS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServerFault  = errors.New("server fault")
)

// kindError is a named error belonging to a kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// =============================================================================
// NAMED ERRORS
// =============================================================================

var (
	ErrAlreadyCheckedIn      = newKindError(ErrConflict, "already checked in today")
	ErrAlreadyCheckedOut     = newKindError(ErrConflict, "already checked out today")
	ErrDuplicateLeaveRequest = newKindError(ErrConflict, "a leave request already exists for this date")

	// ErrDuplicateRecord is the storage-level uniqueness violation.
	ErrDuplicateRecord = newKindError(ErrConflict, "duplicate record")

	ErrMustCheckInFirst = newKindError(ErrValidation, "please check in first")

	ErrEmployeeNotFound     = newKindError(ErrNotFound, "employee not found")
	ErrLeaveRequestNotFound = newKindError(ErrNotFound, "leave request not found")

	ErrInvalidCredentials = newKindError(ErrUnauthorized, "invalid credentials")
	ErrTokenExpired       = newKindError(ErrUnauthorized, "token expired")
	ErrForbidden          = newKindError(ErrUnauthorized, "not authorized for this operation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending input field.
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

// DuplicateDayError reports a (employee, day) uniqueness violation in a table.
type DuplicateDayError struct {
	EmployeeID EmployeeID
	Day        Day
	Table      string
}

func (e *DuplicateDayError) Error() string {
	return fmt.Sprintf("%s already has a %s record for %s", e.EmployeeID, e.Table, e.Day)
}

func (e *DuplicateDayError) Unwrap() error { return ErrDuplicateRecord }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf classifies err. Unclassified errors are server faults.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict):
		return ErrConflict
	}
	return ErrServerFault
}

// IsClientError returns true if the error is due to the caller's input or state.
func IsClientError(err error) bool {
	k := KindOf(err)
	return k != nil && k != ErrServerFault
}
