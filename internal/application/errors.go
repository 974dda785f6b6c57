package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested room or booking does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the acting principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrConflict is returned when a booking interval overlaps an active booking on the room.
	ErrConflict = errors.New("application: booking conflict")
	// ErrInvalidInterval is returned when a booking's start is not before its end.
	ErrInvalidInterval = errors.New("application: start must be before end")
	// ErrInvalidExtension is returned when an extension length violates the configured range or increment.
	ErrInvalidExtension = errors.New("application: invalid extension length")
	// ErrLimitReached is returned when a booking has exhausted its extension allowance.
	ErrLimitReached = errors.New("application: extension limit reached")
	// ErrInvalidState is returned when an operation is not valid for the booking's current status.
	ErrInvalidState = errors.New("application: operation not valid for current status")
	// ErrWindowExpired is returned when a check-in arrives after the check-in window closed.
	ErrWindowExpired = errors.New("application: check-in window expired")
	// ErrAlreadyCheckedIn is returned when a booking has already been checked in.
	ErrAlreadyCheckedIn = errors.New("application: already checked in")
	// ErrInvalidPattern is returned when recurrence inputs cannot produce a valid series.
	ErrInvalidPattern = errors.New("application: invalid recurrence pattern")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
