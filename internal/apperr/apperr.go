// Package apperr defines the error taxonomy shared by every public operation.
// Services return these tagged errors; the transport layer maps them to status
// codes. Internal detail (storage errors, wrapped causes) stays server-side.
package apperr

import (
	"errors"
	"fmt"
)

// Kind tags an error with its caller-visible class.
type Kind int

const (
	KindValidation    Kind = iota // malformed input
	KindNotFound                  // order/agent/user absent
	KindAuthorization             // non-owner, unverified agent, non-author
	KindConflict                  // lost assignment race, duplicate registration
	KindExpired                   // pickup code past expiry
	KindInternal                  // everything else; detail not exposed
)

// Error is a tagged operation failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, never shown to callers
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the caller-safe text.
func (e *Error) Message() string { return e.Msg }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Expired(format string, args ...any) *Error {
	return &Error{Kind: KindExpired, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure with a generic caller-facing message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal error", Err: err}
}

// KindOf extracts the Kind from err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
