package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MsgRequired is the validation message for mandatory fields.
const MsgRequired = "is required"

// Sentinel errors for errors.Is() checking.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnavailable       = errors.New("unavailable")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrAlreadyExists     = errors.New("already exists")
)

// ValidationError provides programmatic access to field-level validation failures.
// Use errors.Is(err, ErrValidation) for simple checks, or errors.As(err, &verr) to
// access verr.Fields for per-field error details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransitionError reports a status move the acting role may not perform.
// Allowed lists the targets the role could move to from From, for client
// display. It wraps ErrInvalidTransition.
type TransitionError struct {
	Entity  string
	Role    Role
	From    string
	To      string
	Allowed []string
	Reason  string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s cannot move %s from %q to %q", ErrInvalidTransition, e.Role, e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// CapacityError reports a move into a column that is at its WIP limit.
type CapacityError struct {
	ColumnID  string
	Limit     int
	Occupancy int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: column %q holds %d of %d", ErrCapacityExceeded, e.ColumnID, e.Occupancy, e.Limit)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// IsRetryable reports whether a caller may safely repeat the failed
// operation unchanged. Rule denials need user intervention.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrValidation), errors.Is(err, ErrForbidden):
		return false
	default:
		return true
	}
}

// NotFoundf wraps ErrNotFound with a formatted subject, e.g.
// NotFoundf("board %q", id).
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
