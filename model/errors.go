package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that the requested record does not exist.
	ErrNotFound = errors.New("submission not found")
	// ErrConflict signals a decision attempt on an already-decided submission.
	// It is never retried and never silently overwritten.
	ErrConflict = errors.New("submission already decided")
)

// ValidationError describes rejected user input. It is always recovered
// locally with a reprompt and never corrupts flow state.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Code returns a stable identifier for log aggregation.
func (e *ValidationError) Code() string { return "VALIDATION" }

// Validationf builds a ValidationError with a formatted reason.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
