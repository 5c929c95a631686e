package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies where a failure originated. Handlers and the editor loop
// render every kind inline; none of them is allowed to crash a request.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindStorage     Kind = "storage"
	KindPersistence Kind = "persistence"
	KindValidation  Kind = "validation"
	KindGeneric     Kind = "generic"
)

type AppError struct {
	Code     int      `json:"code"`
	Kind     Kind     `json:"kind"`
	AuthCode string   `json:"auth_code,omitempty"`
	Message  string   `json:"message"`
	Details  []string `json:"details,omitempty"`
	Err      error    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    KindGeneric,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, message, nil)
}

func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, message, nil)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Internal Server Error", err)
}

// Auth wraps an identity provider rejection. The message comes from the
// fixed lookup table so callers never show raw provider text.
func Auth(code string, err error) *AppError {
	return &AppError{
		Code:     authStatus(code),
		Kind:     KindAuth,
		AuthCode: code,
		Message:  AuthMessage(code),
		Err:      err,
	}
}

// Storage wraps a blob upload or URL resolution failure.
func Storage(message string, err error) *AppError {
	if message == "" {
		message = MsgStorageFailed
	}
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindStorage,
		Message: message,
		Err:     err,
	}
}

// Persistence wraps a document read, write or delete failure.
func Persistence(message string, err error) *AppError {
	if message == "" {
		message = MsgPersistenceFailed
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindPersistence,
		Message: message,
		Err:     err,
	}
}

// PersistenceNotFound is a persistence failure for a document that no longer exists.
func PersistenceNotFound(err error) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Kind:    KindPersistence,
		Message: MsgDocumentNotFound,
		Err:     err,
	}
}

// Validation reports a local required-field failure. It never wraps a
// network error.
func Validation(message string, details ...string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindValidation,
		Message: message,
		Details: details,
	}
}

// KindOf returns the kind of err, or KindGeneric when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindGeneric
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// AuthCodeOf returns the provider error code carried by err, if any.
func AuthCodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.AuthCode
	}
	return ""
}

// UserMessage is the inline text for err. Non-AppErrors get the generic fallback.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return MsgUnexpected
}
