// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by every layer of hioload-aio. Each failure a public
// operation can report maps to exactly one ErrorCode; callers match with
// errors.Is against the sentinel values below.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeAddrParse
	ErrCodeProtocolMismatch
	ErrCodeResolution
	ErrCodeOS
	ErrCodeUnsupportedOption
	ErrCodeInvalidValue
	ErrCodeAddressInUse
	ErrCodeCancelled
	ErrCodeResourceExhausted
	ErrCodeInvalidState
	ErrCodeClosed
	ErrCodeNotSupported
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                "ok",
	ErrCodeAddrParse:         "malformed address",
	ErrCodeProtocolMismatch:  "protocol mismatch",
	ErrCodeResolution:        "resolution failed",
	ErrCodeOS:                "os error",
	ErrCodeUnsupportedOption: "unsupported option",
	ErrCodeInvalidValue:      "invalid value",
	ErrCodeAddressInUse:      "address in use",
	ErrCodeCancelled:         "operation cancelled",
	ErrCodeResourceExhausted: "resource exhausted",
	ErrCodeInvalidState:      "invalid state",
	ErrCodeClosed:            "closed",
	ErrCodeNotSupported:      "operation not supported",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("error code %d", int(c))
}

// Sentinels for errors.Is matching. Any *Error with the same Code matches.
var (
	ErrAddrParse         = &Error{Code: ErrCodeAddrParse}
	ErrProtocolMismatch  = &Error{Code: ErrCodeProtocolMismatch}
	ErrResolution        = &Error{Code: ErrCodeResolution}
	ErrOS                = &Error{Code: ErrCodeOS}
	ErrUnsupportedOption = &Error{Code: ErrCodeUnsupportedOption}
	ErrInvalidValue      = &Error{Code: ErrCodeInvalidValue}
	ErrAddressInUse      = &Error{Code: ErrCodeAddressInUse}
	ErrCancelled         = &Error{Code: ErrCodeCancelled}
	ErrResourceExhausted = &Error{Code: ErrCodeResourceExhausted}
	ErrInvalidState      = &Error{Code: ErrCodeInvalidState}
	ErrClosed            = &Error{Code: ErrCodeClosed}
	ErrNotSupported      = &Error{Code: ErrCodeNotSupported}
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Context) > 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	return msg
}

// Unwrap exposes the underlying cause (usually a syscall.Errno).
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap attaches code and operation name to a cause.
func Wrap(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode carried by err, ErrCodeOK for nil and
// ErrCodeOS for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c interface{ ErrorCode() ErrorCode }
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ErrCodeOS
}

// Cancelled builds the completion error delivered to cancelled operations.
func Cancelled(op string) error {
	return &Error{Code: ErrCodeCancelled, Op: op}
}

// ResolutionKind distinguishes why name resolution produced nothing.
type ResolutionKind int

const (
	ResolutionNotFound ResolutionKind = iota + 1
	ResolutionTimeout
	ResolutionTransport
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionNotFound:
		return "not found"
	case ResolutionTimeout:
		return "timeout"
	case ResolutionTransport:
		return "transport failure"
	default:
		return "unknown"
	}
}

// ResolutionError is returned when a host/service query yields no entries.
type ResolutionError struct {
	Kind  ResolutionKind
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	msg := "resolve " + e.Query + ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches ErrResolution.
func (e *ResolutionError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == ErrCodeResolution
}

// ErrorCode implements the CodeOf hook.
func (e *ResolutionError) ErrorCode() ErrorCode { return ErrCodeResolution }
