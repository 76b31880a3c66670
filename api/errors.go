// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the xtransport library.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the fault taxonomy surfaced by Endpoints and Acceptors.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodePayloadTooLarge
	ErrCodeDisposed
	ErrCodeConnectionFailed
	ErrCodeTransportFault
	ErrCodeProtocolOverflow
	ErrCodeProtocolMismatch
	ErrCodeRingFull
	ErrCodeInvalidArgument
	ErrCodeNotFound
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodePayloadTooLarge:
		return "payload_too_large"
	case ErrCodeDisposed:
		return "disposed"
	case ErrCodeConnectionFailed:
		return "connection_failed"
	case ErrCodeTransportFault:
		return "transport_fault"
	case ErrCodeProtocolOverflow:
		return "protocol_overflow"
	case ErrCodeProtocolMismatch:
		return "protocol_mismatch"
	case ErrCodeRingFull:
		return "ring_full"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeInternal:
		return "internal"
	default:
		return "ok"
	}
}

// Error is a structured error carrying a stable code plus free-form context,
// so callers can branch on Code without parsing Error().
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes a wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// clone returns a shallow copy of e so that WithContext/WithCause never
// mutate a shared sentinel (ErrDisposed and friends are package-level vars
// referenced concurrently from many goroutines).
func (e *Error) clone() *Error {
	ctx := make(map[string]any, len(e.Context))
	for k, v := range e.Context {
		ctx[k] = v
	}
	return &Error{Code: e.Code, Message: e.Message, Context: ctx, cause: e.cause}
}

// WithContext returns a copy of e with key/value attached, for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	c := e.clone()
	c.Context[key] = value
	return c
}

// WithCause returns a copy of e wrapping an underlying cause, for chaining.
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.cause = cause
	return c
}

// Sentinel errors for the taxonomy in spec §7. Use errors.Is against these,
// or errors.As(&*Error) to read Code/Context on a specific failure.
var (
	ErrPayloadTooLarge  = NewError(ErrCodePayloadTooLarge, "payload exceeds backend maximum")
	ErrDisposed         = NewError(ErrCodeDisposed, "endpoint is disposed")
	ErrConnectionFailed = NewError(ErrCodeConnectionFailed, "connection failed")
	ErrTransportFault   = NewError(ErrCodeTransportFault, "transport fault")
	ErrProtocolOverflow = NewError(ErrCodeProtocolOverflow, "frame length exceeds maximum")
	ErrProtocolMismatch = NewError(ErrCodeProtocolMismatch, "protocol magic/version mismatch")
	ErrRingFull         = NewError(ErrCodeRingFull, "ring buffer is full")
	ErrInvalidArgument  = NewError(ErrCodeInvalidArgument, "invalid argument")
	ErrNotFound         = NewError(ErrCodeNotFound, "resource not found")
)

// Is allows errors.Is(err, api.ErrDisposed) to match any *Error sharing the code,
// not only the exact sentinel pointer.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
