// Package errors defines the coded error type shared by the engine and its collaborators.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeUnknownCapability  Code = "UNKNOWN_CAPABILITY"
	CodeInvalidArguments   Code = "INVALID_ARGUMENTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeExecution          Code = "EXECUTION_ERROR"
	CodeInferenceFailure   Code = "INFERENCE_FAILURE"
	CodeInferenceTimeout   Code = "INFERENCE_TIMEOUT"
	CodeLoopBudgetExceeded Code = "LOOP_BUDGET_EXCEEDED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfiguration      Code = "CONFIGURATION"
	CodeStorageFailure     Code = "STORAGE_FAILURE"
)

var defaultMessages = map[Code]string{
	CodeUnknown:            "unknown error",
	CodeUnknownCapability:  "unknown capability",
	CodeInvalidArguments:   "invalid arguments",
	CodeUnauthorized:       "unauthorized",
	CodeExecution:          "execution failed",
	CodeInferenceFailure:   "inference failed",
	CodeInferenceTimeout:   "inference timed out",
	CodeLoopBudgetExceeded: "loop budget exceeded",
	CodeNotFound:           "not found",
	CodeConfiguration:      "invalid configuration",
	CodeStorageFailure:     "storage failure",
}

// Error is a failure tagged with a Code.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates an Error. An empty message falls back to the code's default text.
func New(code Code, message string) *Error {
	if message == "" {
		message = defaultMessages[code]
	}
	return &Error{code: code, message: message}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, cause error, message string) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target carries the same code. An inference timeout also
// matches CodeInferenceFailure.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.code == t.code {
		return true
	}
	return e.code == CodeInferenceTimeout && t.code == CodeInferenceFailure
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message returns the message without the code prefix or cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Detail returns the message followed by the cause, without the code prefix.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// From extracts an *Error from err's chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if stdErrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnknownCapability  = New(CodeUnknownCapability, "")
	ErrInvalidArguments   = New(CodeInvalidArguments, "")
	ErrUnauthorized       = New(CodeUnauthorized, "")
	ErrExecution          = New(CodeExecution, "")
	ErrInferenceFailure   = New(CodeInferenceFailure, "")
	ErrInferenceTimeout   = New(CodeInferenceTimeout, "")
	ErrLoopBudgetExceeded = New(CodeLoopBudgetExceeded, "")
	ErrNotFound           = New(CodeNotFound, "")
)
