package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for analysis framework errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// Submission error codes
const (
	ENGINE_NOT_FOUND ErrorCode = "ENGINE_NOT_FOUND"
	TASK_INVALID     ErrorCode = "TASK_INVALID"
	QUEUE_FULL       ErrorCode = "QUEUE_FULL"
	TASK_NOT_FOUND   ErrorCode = "TASK_NOT_FOUND"
)

// Execution error codes
const (
	ENGINE_EXECUTION_FAILED ErrorCode = "ENGINE_EXECUTION_FAILED"
	ENGINE_PANIC            ErrorCode = "ENGINE_PANIC"
	CALLBACK_FAILED         ErrorCode = "CALLBACK_FAILED"
	TASK_TIMEOUT            ErrorCode = "TASK_TIMEOUT"
)

// Lifecycle error codes
const (
	ORCHESTRATOR_STOPPED ErrorCode = "ORCHESTRATOR_STOPPED"
	BUS_CLOSED           ErrorCode = "BUS_CLOSED"
	BUS_QUEUE_FULL       ErrorCode = "BUS_QUEUE_FULL"
	SHUTDOWN_TIMEOUT     ErrorCode = "SHUTDOWN_TIMEOUT"
)

// Initialization error codes
const (
	INIT_DIRS_FAILED   ErrorCode = "INIT_DIRS_FAILED"
	INIT_CONFIG_FAILED ErrorCode = "INIT_CONFIG_FAILED"
)

// AnalysisError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type AnalysisError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is an AnalysisError with the same Code.
func (e *AnalysisError) Is(target error) bool {
	var analysisErr *AnalysisError
	if errors.As(target, &analysisErr) {
		return e.Code == analysisErr.Code
	}
	return false
}

// NewError creates a new non-retryable AnalysisError with the given code and message.
func NewError(code ErrorCode, message string) *AnalysisError {
	return &AnalysisError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable AnalysisError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., a briefly full queue).
func NewRetryableError(code ErrorCode, message string) *AnalysisError {
	return &AnalysisError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable AnalysisError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// HasCode reports whether err or any error in its chain is an AnalysisError
// carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Code == code
	}
	return false
}
