// Package errors provides domain-specific error types and sentinel errors
// shared by the importer, the reminder evaluator and the HTTP API.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Check them with errors.Is.
var (
	// ErrNotFound indicates a requested project or record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the caller supplied malformed input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnreadableSource indicates a spreadsheet or CSV source could not be read at all.
	ErrUnreadableSource = errors.New("unreadable tabular source")

	// ErrNoValidData indicates an import produced zero usable rows.
	ErrNoValidData = errors.New("no valid data")

	// ErrUnsupportedFormat indicates an upload whose extension is neither .xlsx nor .csv.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrDispatch indicates a reminder could not be delivered.
	ErrDispatch = errors.New("reminder dispatch failed")

	// ErrLockHeld indicates another instance holds the evaluation lock.
	ErrLockHeld = errors.New("lock held by another instance")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// DispatchError records which sink failed for which project.
type DispatchError struct {
	Sink      string
	ProjectID string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch via %s (project=%s): %v", e.Sink, e.ProjectID, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{ErrDispatch, e.Err}
}

// NewDispatchError creates a new dispatch error.
func NewDispatchError(sink, projectID string, err error) *DispatchError {
	return &DispatchError{Sink: sink, ProjectID: projectID, Err: err}
}
