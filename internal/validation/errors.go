package validation

import (
	"errors"
	"fmt"
)

// Code classifies why a field was rejected. API clients match on the code,
// the message is for people.
type Code string

const (
	CodeRequired       Code = "required"
	CodeTooShort       Code = "too_short"
	CodeTooLong        Code = "too_long"
	CodeInvalidChars   Code = "invalid_characters"
	CodeInvalidAddress Code = "invalid_address"
	CodeInvalidURL     Code = "invalid_url"
	CodeOutOfRange     Code = "out_of_range"
	CodeInvalid        Code = "invalid"
)

// FieldError is the error returned by the Validate functions.
type FieldError struct {
	Code    Code
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func fieldError(code Code, format string, args ...any) error {
	return &FieldError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, or CodeInvalid if it has none.
func CodeOf(err error) Code {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeInvalid
}

// ValidationError rejects one input field of an operation.
type ValidationError struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every rejected field of an operation, so callers
// see all of them before any instruction is built.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

// Check records err against field and reports whether the field passed.
func (e *ValidationErrors) Check(field, value string, err error) bool {
	if err == nil {
		return true
	}
	*e = append(*e, &ValidationError{
		Field:   field,
		Code:    CodeOf(err),
		Value:   value,
		Message: err.Error(),
	})
	return false
}

// Reject records a field that failed a check with no Validate function.
func (e *ValidationErrors) Reject(field, value string, code Code, message string) {
	e.Check(field, value, &FieldError{Code: code, Message: message})
}

// Field returns the first error recorded for name, or nil.
func (e ValidationErrors) Field(name string) *ValidationError {
	for _, ve := range e {
		if ve.Field == name {
			return ve
		}
	}
	return nil
}

// HasErrors returns true if any field was rejected.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
