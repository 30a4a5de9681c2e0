// Package domainerrors carries coded errors from services to transports.
//
// Services return *Error values (or wrap infrastructure errors into one) so the
// HTTP layer can map a stable Code to a status without string matching. Stores
// should not construct these; they return sentinel errors from
// pkg/platform/sentinel and let services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Capacity errors are user-correctable and never retried automatically.
	CodeCapacityExceeded Code = "capacity_exceeded"
	CodeImmutableCeiling Code = "immutable_ceiling"
	CodeProgramNotOpen   Code = "program_not_open"

	// Conflict errors describe expected outcomes of repeated or concurrent use.
	CodeDuplicateEnrollment Code = "duplicate_enrollment"
	CodeAlreadyIssued       Code = "already_issued"

	CodeRegistrationNotApproved Code = "registration_not_approved"
)

// Error is a coded domain error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost *Error in err's chain carries code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
