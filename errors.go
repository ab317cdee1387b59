// Package sift structured error types.
package sift

import "fmt"

// ErrorType represents categories of errors.
type ErrorType int

const (
	// Configuration errors: invalid group size, bad arguments. Detected
	// before dispatch; nothing partial executes.
	ErrTypeConfig ErrorType = iota
	// Device resource errors: buffer allocation or release failures.
	ErrTypeResource
	// Execution errors: kernel dispatch or kernel runtime failures.
	ErrTypeExecution
	// Device errors: device selection and discovery.
	ErrTypeDevice
)

// Error is a structured error with operation context.
type Error struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sift %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("sift %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfig:
		return "Configuration"
	case ErrTypeResource:
		return "Resource"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeDevice:
		return "Device"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewConfigError creates a configuration error.
func NewConfigError(op string, message string) error {
	return &Error{
		Type:    ErrTypeConfig,
		Op:      op,
		Message: message,
	}
}

// NewResourceError creates a device resource error.
func NewResourceError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeResource,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewExecutionError creates an execution error.
func NewExecutionError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates memory allocation failure.
	ErrOutOfMemory = NewResourceError("Malloc", "out of memory", nil)

	// ErrInvalidSize indicates an invalid size parameter.
	ErrInvalidSize = NewConfigError("Malloc", "size must be positive")

	// ErrDoubleFree indicates a double free attempt.
	ErrDoubleFree = NewResourceError("Free", "double free detected", nil)

	// ErrInvalidDevice indicates an invalid device ID.
	ErrInvalidDevice = NewConfigError("SetDevice", "invalid device ID")
)

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeConfig
	}
	return false
}

// IsResourceError checks if an error is a device resource error.
func IsResourceError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeResource
	}
	return false
}

// IsExecutionError checks if an error is an execution error.
func IsExecutionError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeExecution
	}
	return false
}
