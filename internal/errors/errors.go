// Package errors maps solver failures onto the service's HTTP and JSON-RPC
// error responses and carries a stack trace for logging.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/copyleftdev/descent/internal/optimization"
)

// Code is a machine-readable error code returned to API clients.
type Code string

const (
	CodeInvalidRequest      Code = "invalid_request"
	CodeDimensionMismatch   Code = "dimension_mismatch"
	CodeMissingInitialParam Code = "missing_initial_param"
	CodeEvaluation          Code = "evaluation_error"
	CodeLineSearchFailure   Code = "line_search_failure"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeRateLimited         Code = "rate_limited"
	CodeInternal            Code = "internal"
)

// JSON-RPC 2.0 error codes. Codes above -32000 are reserved by the protocol;
// the solver failures use the implementation-defined server range.
const (
	RPCParseError     = -32700
	RPCInvalidRequest = -32600
	RPCMethodNotFound = -32601
	RPCInvalidParams  = -32602
	RPCInternalError  = -32603

	RPCNotFound      = -32001
	RPCSolverFailure = -32002
	RPCRateLimited   = -32003
	RPCConflict      = -32004
)

// Error represents an error with context and stack trace.
type Error struct {
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// Code is the client-facing classification.
	Code Code
	// The operation that was being performed when the error occurred
	Operation string
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// HTTPStatus returns the status code used when the error reaches a REST client.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidRequest, CodeDimensionMismatch, CodeMissingInitialParam:
		return http.StatusBadRequest
	case CodeEvaluation, CodeLineSearchFailure:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RPCCode returns the JSON-RPC error code for the error.
func (e *Error) RPCCode() int {
	switch e.Code {
	case CodeInvalidRequest, CodeDimensionMismatch, CodeMissingInitialParam:
		return RPCInvalidParams
	case CodeEvaluation, CodeLineSearchFailure:
		return RPCSolverFailure
	case CodeNotFound:
		return RPCNotFound
	case CodeConflict:
		return RPCConflict
	case CodeRateLimited:
		return RPCRateLimited
	default:
		return RPCInternalError
	}
}

// New creates a new error with a code and message.
func New(code Code, msg string) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// Wrap classifies err and attaches msg. An *Error already in the chain keeps
// its code. If err is nil, Wrap returns nil.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if stderrors.As(err, &existing) {
		return &Error{
			Err:     err,
			Message: msg,
			Code:    existing.Code,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Err:     err,
		Message: msg,
		Code:    codeOf(err),
		Stack:   getStackTrace(),
	}
}

// codeOf classifies optimization errors by kind. Everything else is internal.
func codeOf(err error) Code {
	switch optimization.KindOf(err) {
	case optimization.KindDimensionMismatch:
		return CodeDimensionMismatch
	case optimization.KindMissingInitialParam:
		return CodeMissingInitialParam
	case optimization.KindEvaluation:
		return CodeEvaluation
	case optimization.KindLineSearchFailure:
		return CodeLineSearchFailure
	case optimization.KindInvalidConfig:
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}
