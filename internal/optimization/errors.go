package optimization

import "fmt"

// ErrorKind classifies an optimization error.
type ErrorKind int

const (
	// KindUnknown is the zero kind and never matches a sentinel.
	KindUnknown ErrorKind = iota
	// KindDimensionMismatch reports vectors of inconsistent length.
	KindDimensionMismatch
	// KindMissingInitialParam reports a run configured without a starting point.
	KindMissingInitialParam
	// KindEvaluation reports a cost or gradient evaluation that failed or
	// produced a non-finite value.
	KindEvaluation
	// KindLineSearchFailure reports a line search that found no admissible step.
	KindLineSearchFailure
	// KindInvalidConfig reports configuration values out of range.
	KindInvalidConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindDimensionMismatch:
		return "DimensionMismatch"
	case KindMissingInitialParam:
		return "MissingInitialParam"
	case KindEvaluation:
		return "EvaluationError"
	case KindLineSearchFailure:
		return "LineSearchFailure"
	case KindInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// Sentinel errors for use with errors.Is. Any *Error of the same kind
// matches, regardless of message or context.
var (
	ErrDimensionMismatch   = &Error{Kind: KindDimensionMismatch, Message: "dimension mismatch"}
	ErrMissingInitialParam = &Error{Kind: KindMissingInitialParam, Message: "missing initial parameter"}
	ErrEvaluation          = &Error{Kind: KindEvaluation, Message: "evaluation error"}
	ErrLineSearchFailure   = &Error{Kind: KindLineSearchFailure, Message: "line search failure"}
	ErrInvalidConfig       = &Error{Kind: KindInvalidConfig, Message: "invalid configuration"}
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the error.
	Kind ErrorKind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Point is the parameter vector being evaluated, if any.
	Point []float64
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	msg := e.Message
	if e.Point != nil {
		msg = fmt.Sprintf("%s at %v", msg, e.Point)
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error of the same, known kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind != KindUnknown && t.Kind == e.Kind
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithPoint records a copy of the offending point.
func (e *Error) WithPoint(x []float64) *Error {
	e.Point = append([]float64(nil), x...)
	return e
}

// NewError creates a new optimization error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, kind ErrorKind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, kind ErrorKind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	if e, ok := err.(*Error); ok {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind != KindUnknown {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return KindUnknown
		}
		err = u.Unwrap()
	}
	return KindUnknown
}
