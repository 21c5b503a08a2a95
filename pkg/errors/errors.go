// Package errors provides structured error types for the taskgraph layout engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, API and library callers
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The layout pipeline reports three domain failures:
//   - MALFORMED_TASK_TREE: the task configuration cannot be turned into a graph
//   - SIZE_OVERFLOW: sizing hit a configured limit or produced non-finite geometry
//   - LAYOUT_SOLVER_FAILURE: the external layout solver rejected the request
//
// The remaining codes follow the hierarchical convention INVALID_*,
// NOT_FOUND_*, INTERNAL_*.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedTaskTree, "task %q has no type", name)
//	if errors.Is(err, errors.ErrCodeMalformedTaskTree) {
//	    // Show "no diagram"
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeLayoutSolver, origErr, "solve level %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Layout pipeline errors
	ErrCodeMalformedTaskTree Code = "MALFORMED_TASK_TREE"
	ErrCodeSizeOverflow      Code = "SIZE_OVERFLOW"
	ErrCodeLayoutSolver      Code = "LAYOUT_SOLVER_FAILURE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidEngine Code = "INVALID_ENGINE"
	ErrCodeInvalidNodeID Code = "INVALID_NODE_ID"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// TaskError locates a malformed entry inside a task tree.
// Path is the slash-separated position of the offending task (e.g. "task-2/arm-0/task-1").
type TaskError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Code returns the error code for this error type.
func (e *TaskError) Code() Code {
	return ErrCodeMalformedTaskTree
}

// Malformed builds a MALFORMED_TASK_TREE error carrying the offending task path.
func Malformed(path, format string, args ...any) *Error {
	cause := &TaskError{Path: path, Reason: fmt.Sprintf(format, args...)}
	return &Error{
		Code:    ErrCodeMalformedTaskTree,
		Message: "malformed task tree",
		Cause:   cause,
	}
}
