/*
errors.go - Error types for the timecard state machine

PURPOSE:
  Every rule violation is reported as a typed error. Callers branch with
  errors.Is on the sentinels, or errors.As on the structured types when
  they need the context (current status, acting resource, ...).

ERROR CATEGORIES:
  1. Not found  - unknown timecard or line
  2. Conflicts  - invalid state, actor mismatch, empty timecard,
                  missing transition
  3. Validation - malformed line content

  A rejected operation never mutates the aggregate.

SEE ALSO:
  - timecard.go: State machine raising these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package timecard

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced timecard or line doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when the operation is not legal for the
	// timecard's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrActorMismatch is returned when the acting resource fails the
	// owner/non-owner rule of a transition.
	ErrActorMismatch = errors.New("actor mismatch")

	// ErrEmptyTimecard is returned when submitting a timecard with no lines.
	ErrEmptyTimecard = errors.New("empty timecard")

	// ErrMissingTransition is returned when a transition detail is queried
	// while the timecard is not in that transition's target status.
	ErrMissingTransition = errors.New("missing transition")

	// ErrInvalidLine is returned when line content is malformed.
	ErrInvalidLine = errors.New("invalid line")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing timecard or line.
type NotFoundError struct {
	TimecardID ID
	LineID     LineID // empty when the timecard itself is missing
}

func (e *NotFoundError) Error() string {
	if e.LineID != "" {
		return fmt.Sprintf("line %s not found on timecard %s", e.LineID, e.TimecardID)
	}
	return fmt.Sprintf("timecard %s not found", e.TimecardID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports an operation attempted from the wrong status.
type InvalidStateError struct {
	Op     Operation
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a timecard in status %s", e.Op, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// ActorMismatchError reports a segregation-of-duty violation.
// MustBeOwner is true for self-service operations (submit, cancel) and
// false for adjudication (approve, reject).
type ActorMismatchError struct {
	Op          Operation
	Actor       string
	Owner       string
	MustBeOwner bool
}

func (e *ActorMismatchError) Error() string {
	if e.MustBeOwner {
		return fmt.Sprintf("%s must be performed by %s, not %s", e.Op, e.Owner, e.Actor)
	}
	return fmt.Sprintf("%s cannot be performed by the timecard owner %s", e.Op, e.Owner)
}

func (e *ActorMismatchError) Unwrap() error { return ErrActorMismatch }

// EmptyTimecardError reports a submittal without lines.
type EmptyTimecardError struct {
	TimecardID ID
}

func (e *EmptyTimecardError) Error() string {
	return fmt.Sprintf("timecard %s has no lines", e.TimecardID)
}

func (e *EmptyTimecardError) Unwrap() error { return ErrEmptyTimecard }

// MissingTransitionError reports a detail query for a status the timecard
// is not in.
type MissingTransitionError struct {
	Want   Status
	Status Status
}

func (e *MissingTransitionError) Error() string {
	return fmt.Sprintf("no %s transition: timecard is %s", e.Want, e.Status)
}

func (e *MissingTransitionError) Unwrap() error { return ErrMissingTransition }

// InvalidLineError describes malformed line input.
type InvalidLineError struct {
	Field  string
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid line %s: %s", e.Field, e.Reason)
}

func (e *InvalidLineError) Unwrap() error { return ErrInvalidLine }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Conflict kinds reported to clients.
const (
	KindInvalidState      = "invalid_state"
	KindActorMismatch     = "actor_mismatch"
	KindEmptyTimecard     = "empty_timecard"
	KindMissingTransition = "missing_transition"
)

// IsNotFound returns true if the error indicates a missing timecard or line.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a state-machine conflict.
func IsConflict(err error) bool {
	return ConflictKind(err) != ""
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLine)
}

// ConflictKind returns the kind identifier of a conflict, or "" if err is
// not a conflict.
func ConflictKind(err error) string {
	switch {
	case errors.Is(err, ErrActorMismatch):
		return KindActorMismatch
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrEmptyTimecard):
		return KindEmptyTimecard
	case errors.Is(err, ErrMissingTransition):
		return KindMissingTransition
	default:
		return ""
	}
}
