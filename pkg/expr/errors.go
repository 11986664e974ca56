package expr

import (
	"fmt"
	"strings"
)

// Error tag constants classifying evaluation failures.
const (
	TagSyntaxError          = "SyntaxError"
	TagUnknownFunctionError = "UnknownFunctionError"
	TagUnknownConstantError = "UnknownConstantError"
	TagUnboundVariableError = "UnboundVariableError"
	TagZeroDivisionError    = "ZeroDivisionError"
	TagArityError           = "ArityError"
)

// EvalError represents a formula parse or evaluation error with a
// message and classification tags.
type EvalError struct {
	Message string
	Tags    []string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("%s (tags=[%s])", e.Message, strings.Join(e.Tags, ", "))
}

// HasTag returns true if the error has the specified tag.
func (e *EvalError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasErrorTag reports whether err is an EvalError carrying the tag.
func HasErrorTag(err error, tag string) bool {
	ee, ok := err.(*EvalError)
	return ok && ee.HasTag(tag)
}

// Common error constructors.

// NewSyntaxError creates a SyntaxError.
func NewSyntaxError(format string, args ...interface{}) *EvalError {
	return &EvalError{Message: fmt.Sprintf(format, args...), Tags: []string{TagSyntaxError}}
}

// NewUnknownFunctionError creates an UnknownFunctionError.
func NewUnknownFunctionError(name string) *EvalError {
	return &EvalError{
		Message: fmt.Sprintf("unknown function '%s'", name),
		Tags:    []string{TagUnknownFunctionError},
	}
}

// NewUnknownConstantError creates an UnknownConstantError.
func NewUnknownConstantError(name string) *EvalError {
	return &EvalError{
		Message: fmt.Sprintf("unknown constant '%s'", name),
		Tags:    []string{TagUnknownConstantError},
	}
}

// NewUnboundVariableError creates an UnboundVariableError.
func NewUnboundVariableError(name string) *EvalError {
	return &EvalError{
		Message: fmt.Sprintf("variable '%s' is not bound", name),
		Tags:    []string{TagUnboundVariableError},
	}
}

// NewZeroDivisionError creates a ZeroDivisionError.
func NewZeroDivisionError() *EvalError {
	return &EvalError{Message: "division by zero", Tags: []string{TagZeroDivisionError}}
}

// NewArityError creates an ArityError for a call with the wrong number
// of arguments.
func NewArityError(name string, want, got int) *EvalError {
	return &EvalError{
		Message: fmt.Sprintf("function '%s' expects %d argument(s), got %d", name, want, got),
		Tags:    []string{TagArityError},
	}
}
