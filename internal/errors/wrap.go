package errors

import (
	"errors"
	"fmt"
)

// ErrorWrapper tags errors from one module operation with a message that is
// safe to show to an operator or farmer.
type ErrorWrapper struct {
	module    string
	operation string
}

// NewWrapper returns a wrapper for module/operation, e.g. ("catalog", "import").
func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{module: module, operation: operation}
}

// Wrap returns nil for a nil err.
func (w *ErrorWrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{Module: w.module, Operation: w.operation, Cause: err, UserMessage: userMessage}
}

// Wrapf is Wrap with a formatted user message.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...any) error {
	return w.Wrap(err, fmt.Sprintf(format, args...))
}

// WrappedError pairs the internal cause with its user-facing message.
type WrappedError struct {
	Module      string
	Operation   string
	Cause       error
	UserMessage string // Korean
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Module, e.Operation, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the message of the outermost WrappedError in err's chain.
func UserMessage(err error) (string, bool) {
	var wrapped *WrappedError
	if errors.As(err, &wrapped) {
		return wrapped.UserMessage, true
	}
	return "", false
}

// GetUserMessage is UserMessage falling back to err.Error().
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := UserMessage(err); ok {
		return msg
	}
	return err.Error()
}
