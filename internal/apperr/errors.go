// Package apperr defines the closed set of error kinds the invocation
// pipeline can raise and maps each to a channel-specific status: an HTTP
// code for the API surface, an exit code for the CLI surface.
package apperr

import "fmt"

// Kind is the closed taxonomy of error kinds.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindInvalidToken       Kind = "invalid_token"
	KindForbidden          Kind = "forbidden"
	KindDuplicateRecord    Kind = "duplicate_record"
	KindConfiguration      Kind = "configuration"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindUnhandled          Kind = "unhandled"
)

// Error is the framework-wide error type. It never carries a token,
// encryption key, or other sensitive value in Message or Details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetails attaches structured detail (e.g. per-field validation errors).
func (e *Error) WithDetails(d map[string]interface{}) *Error {
	e.Details = d
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func new(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) *Error         { return new(KindValidation, msg) }
func NotFound(msg string) *Error           { return new(KindNotFound, msg) }
func InvalidToken(msg string) *Error       { return new(KindInvalidToken, msg) }
func Forbidden(msg string) *Error          { return new(KindForbidden, msg) }
func Duplicate(msg string) *Error          { return new(KindDuplicateRecord, msg) }
func Configuration(msg string) *Error      { return new(KindConfiguration, msg) }
func BackendUnavailable(msg string) *Error { return new(KindBackendUnavailable, msg) }
func Unhandled(msg string) *Error          { return new(KindUnhandled, msg) }

// KindOf extracts the Kind from any error, defaulting to KindUnhandled for
// errors that are not *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if asError(err, &fe) {
		return fe.Kind
	}
	return KindUnhandled
}

func asError(err error, target **Error) bool {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			*target = fe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HTTPStatus maps a Kind to its HTTP status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return 422
	case KindNotFound:
		return 404
	case KindInvalidToken:
		return 401
	case KindForbidden:
		return 403
	case KindDuplicateRecord:
		return 404
	case KindConfiguration, KindBackendUnavailable:
		return 500
	default:
		return 500
	}
}

// ExitCode maps a Kind to the CLI exit code (0 success is
// handled by the caller; every error kind here is non-zero).
func ExitCode(k Kind) int {
	if k == "" {
		return 0
	}
	return 1
}
