// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrBlockingIssues   = errors.New("allocation has blocking issues")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInvalidDrafts    = errors.New("invalid drafts")
	ErrDatabaseError    = errors.New("database error")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError locates a problem in an input file.
type DataError struct {
	Source string
	Line   int
	Column string
	Err    error
}

func (e *DataError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("data error [%s:%d] column %s: %v", e.Source, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("data error [%s:%d]: %v", e.Source, e.Line, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(source string, line int, column string, err error) *DataError {
	return &DataError{
		Source: source,
		Line:   line,
		Column: column,
		Err:    err,
	}
}

// PlanError represents a failed operation on a saved plan.
type PlanError struct {
	PlanID    string
	Operation string
	Err       error
}

func (e *PlanError) Error() string {
	if e.PlanID == "" {
		return fmt.Sprintf("plan %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("plan %s [%s]: %v", e.Operation, e.PlanID, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// NewPlanError creates a new PlanError.
func NewPlanError(planID, operation string, err error) *PlanError {
	return &PlanError{
		PlanID:    planID,
		Operation: operation,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
