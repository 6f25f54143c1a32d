// Package domainerrors defines the coded error type shared by all domain
// services. Services construct these at the point where a rule is violated;
// transport layers translate the code into an HTTP status without inspecting
// error strings.
//
// Stores never return coded errors directly. They return sentinels from
// pkg/platform/sentinel, and services translate those facts into the code the
// operation's contract promises.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the category of a domain error. Codes are part of the
// public API surface: they appear verbatim in HTTP error envelopes and in
// emitted events, so renaming one is a breaking change.
type Code string

const (
	// Authorization and identity.
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"

	// Registry.
	CodeAlreadyRegistered Code = "already_registered"
	CodeNotVerified       Code = "institution_not_verified"

	// Asset.
	CodeInvalidRoyalty Code = "invalid_royalty"
	CodeSelfTransfer   Code = "self_transfer"
	CodeMetadataLocked Code = "metadata_locked"

	// Marketplace.
	CodeAlreadyListed       Code = "already_listed"
	CodeInvalidPrice        Code = "invalid_price"
	CodeNotActive           Code = "not_active"
	CodeExpired             Code = "expired"
	CodeStaleListing        Code = "stale_listing"
	CodeInsufficientPayment Code = "insufficient_payment"
	CodeSettlementFailed    Code = "settlement_failed"

	// Ambient.
	CodeInvalidArgument    Code = "invalid_argument"
	CodeBadRequest         Code = "bad_request"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded domain error. The message is safe to return to callers;
// the wrapped cause (if any) is for logs only.
type Error struct {
	Code    Code
	Message string
	err     error
}

// New creates a domain error with the given code and caller-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and caller-safe message to an underlying error.
// The cause remains reachable via errors.Unwrap for logging.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Is supports errors.Is between domain errors: two match when code and
// message agree, regardless of wrapped cause. This lets tests assert with
// errors.Is(err, dErrors.New(code, msg)).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// HasCode reports whether err (or anything it wraps) is a domain error
// carrying the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode at call sites that read better as
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that carry no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message from err. Uncoded errors map to
// a generic message so internals never leak into responses.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
