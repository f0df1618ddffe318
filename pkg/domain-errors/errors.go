// Package domainerrors carries coded errors from services to transports.
//
// Services return *Error values (optionally wrapping an underlying cause) and
// transports translate the Code into a status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	CodeBadRequest       Code = "bad_request"
	CodeValidation       Code = "validation_failed"
	CodeFieldLocked      Code = "field_locked"
	CodeFileRejected     Code = "file_rejected"
	CodeInvalidIdentity  Code = "invalid_identifier"
	CodeOTPInvalid       Code = "otp_invalid"
	CodeDeliveryFailed   Code = "delivery_failed"
	CodeSubmissionFailed Code = "submission_failed"
	CodePending          Code = "operation_pending"
	CodeInvalidState     Code = "invalid_state"
	CodeNotFound         Code = "not_found"
	CodeUnauthorized     Code = "unauthorized"
	CodeInternal         Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
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

// New returns a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost *Error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// CodeOf returns the code of err, CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}
