package core

import (
	"fmt"
)

// ErrorCategory classifies replay errors for scoping decisions: connection and
// validation errors fail the whole run, transport and resolution errors are
// scoped to a single step.
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota
	ErrCategoryConnection               // Device unreachable or unresponsive
	ErrCategoryTransport                // One HTTP call failed (network, timeout, malformed body)
	ErrCategoryResolution               // Selector chain exhausted with no match
	ErrCategoryValidation               // Malformed workflow document or selector
)

// String returns the string representation of ErrorCategory.
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryTransport:
		return "transport"
	case ErrCategoryResolution:
		return "resolution"
	case ErrCategoryValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// FailsRun returns true if errors of this category abort the run before or
// instead of executing steps.
func (c ErrorCategory) FailsRun() bool {
	return c == ErrCategoryConnection || c == ErrCategoryValidation
}

// ExecutionError represents a structured error with category and code.
type ExecutionError struct {
	Category ErrorCategory
	Code     string // Machine-readable code: device_unreachable, element_not_found, etc.
	Message  string // Human-readable message
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches against the predefined sentinel values by code, so callers can
// write errors.Is(err, core.ErrElementNotFound) after wrapping.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Cause:    e.Cause,
	}
}

// Predefined errors.
var (
	// Connection errors
	ErrDeviceUnreachable = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "device_unreachable",
		Message:  "device did not answer liveness probe",
	}
	ErrNotConnected = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "not_connected",
		Message:  "engine is not connected to a device",
	}

	// Transport errors
	ErrRequestFailed = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "request_failed",
		Message:  "device request failed",
	}
	ErrMalformedPayload = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "malformed_payload",
		Message:  "device returned a malformed payload",
	}
	ErrActionRejected = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "action_rejected",
		Message:  "device rejected the dispatched action",
	}

	// Resolution errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "element_not_found",
		Message:  "element not found",
	}

	// Validation errors
	ErrInvalidWorkflow = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "invalid_workflow",
		Message:  "invalid workflow document",
	}
	ErrInvalidSelector = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "invalid_selector",
		Message:  "invalid element selector",
	}

	// Engine state errors
	ErrRunInProgress = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "run_in_progress",
		Message:  "engine is already executing a workflow",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters.
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
