// Package errorbank defines the classified error type shared by services and transports.
package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"google.golang.org/grpc/codes"
)

// Kind enumerates supported application error categories.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindUnauthenticated     Kind = "unauthenticated"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindUnprocessableEntity Kind = "unprocessable_entity"
	KindInternal            Kind = "internal"
)

type mapping struct {
	status int
	grpc   codes.Code
}

var kinds = map[Kind]mapping{
	KindBadRequest:          {status: http.StatusBadRequest, grpc: codes.InvalidArgument},
	KindUnauthenticated:     {status: http.StatusUnauthorized, grpc: codes.Unauthenticated},
	KindForbidden:           {status: http.StatusForbidden, grpc: codes.PermissionDenied},
	KindConflict:            {status: http.StatusConflict, grpc: codes.AlreadyExists},
	KindNotFound:            {status: http.StatusNotFound, grpc: codes.NotFound},
	KindUnprocessableEntity: {status: http.StatusUnprocessableEntity, grpc: codes.FailedPrecondition},
	KindInternal:            {status: http.StatusInternalServerError, grpc: codes.Internal},
}

// AppError is a classified failure: a kind that selects the transport status,
// a message safe to show callers, optional details and the underlying cause.
type AppError struct {
	kind    Kind
	message string
	details map[string]any
	cause   error
}

// Option mutates an AppError during construction.
type Option func(*AppError)

// WithCause attaches an underlying error.
func WithCause(err error) Option {
	return func(appErr *AppError) {
		appErr.cause = err
	}
}

// WithDetail adds a single named detail value.
func WithDetail(key string, value any) Option {
	return func(appErr *AppError) {
		if appErr.details == nil {
			appErr.details = make(map[string]any)
		}
		appErr.details[key] = value
	}
}

// WithDetails merges multiple detail values.
func WithDetails(details map[string]any) Option {
	return func(appErr *AppError) {
		for k, v := range details {
			WithDetail(k, v)(appErr)
		}
	}
}

// New constructs an AppError. Unknown kinds are treated as internal.
func New(kind Kind, message string, opts ...Option) *AppError {
	if _, ok := kinds[kind]; !ok {
		kind = KindInternal
	}
	if message == "" {
		message = string(kind)
	}
	appErr := &AppError{kind: kind, message: message}
	for _, opt := range opts {
		opt(appErr)
	}
	return appErr
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind returns the error category.
func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

// Message returns the human-readable message.
func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Details returns optional metadata about the error.
func (e *AppError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// StatusCode resolves the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	return kinds[e.Kind()].status
}

// GRPCCode maps the error kind onto a gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	return kinds[e.Kind()].grpc
}

// BadRequest constructs a 400 error.
func BadRequest(message string, opts ...Option) *AppError {
	return New(KindBadRequest, message, opts...)
}

// Validation constructs a 400 error listing the offending fields under "fields".
func Validation(message string, fields ...string) *AppError {
	if len(fields) == 0 {
		return BadRequest(message)
	}
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return BadRequest(message, WithDetail("fields", sorted))
}

// Unauthenticated constructs a 401 error for missing or invalid sessions.
func Unauthenticated(message string, opts ...Option) *AppError {
	return New(KindUnauthenticated, message, opts...)
}

// Forbidden constructs a 403 error for authenticated callers lacking a role.
func Forbidden(message string, opts ...Option) *AppError {
	return New(KindForbidden, message, opts...)
}

// Conflict constructs a 409 error.
func Conflict(message string, opts ...Option) *AppError {
	return New(KindConflict, message, opts...)
}

// NotFound constructs a 404 error.
func NotFound(message string, opts ...Option) *AppError {
	return New(KindNotFound, message, opts...)
}

// Unprocessable constructs a 422 error.
func Unprocessable(message string, opts ...Option) *AppError {
	return New(KindUnprocessableEntity, message, opts...)
}

// Internal constructs a generic 500 error.
func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// Persistence wraps a storage failure of operation op. The transaction it
// happened in has been rolled back by the time callers see it.
func Persistence(op string, err error) *AppError {
	return Internal(op, WithCause(err), WithDetail("retryable", true))
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.kind == kind
	}
	return false
}

// From returns an AppError for any error input, wrapping unexpected values.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", WithCause(err))
}
