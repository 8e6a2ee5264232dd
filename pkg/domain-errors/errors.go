// Package domainerrors defines the error taxonomy shared by services and the
// HTTP boundary. Services return *Error values; transport maps Code to a status.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure. Codes are part of the public
// API: they are written verbatim into the "error" field of responses.
type Code string

const (
	CodeNotFound      Code = "not_found"
	CodeValidation    Code = "validation_error"
	CodeBadRequest    Code = "bad_request"
	CodeInvalidInput  Code = "invalid_input"
	CodeAgeRestricted Code = "age_restricted"
	CodeEmailTaken    Code = "email_taken"
	CodeInvalidEmail  Code = "invalid_email"
	CodeInvalidDate   Code = "invalid_date"
	CodeInvalidRange  Code = "invalid_range"
	CodeConflict      Code = "conflict"
	CodeTimeout       Code = "timeout"
	CodeInternal      Code = "internal_error"

	// CodeInvariantViolation is raised by model constructors. Services
	// convert it to CodeValidation before it reaches a caller.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded domain error. Fields carries per-field messages for
// validation failures and is nil otherwise.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. The cause stays reachable
// through errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithFields returns a coded error carrying per-field messages.
func WithFields(code Code, message string, fields map[string]string) error {
	return &Error{Code: code, Message: message, Fields: fields}
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost *Error, or CodeInternal when err
// carries no code.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost *Error in err's chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for handler call sites.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
