package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an operation failure. Handlers map kinds to HTTP status
// codes; use cases decide the kind at the point of failure.
type Kind int

const (
	// KindValidation is malformed or missing input. No store access happened.
	KindValidation Kind = iota
	// KindNotFound is a referenced entity that does not exist.
	KindNotFound
	// KindConflict is a precondition on entity state that does not hold
	// (table occupied, insufficient stock, order already finalized).
	KindConflict
	// KindStorage is an unexpected database failure.
	KindStorage
)

// Error carries a failure kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindStorage when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// HTTPStatus maps a failure to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of err. Storage failures collapse
// to a generic message so internals never leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorage {
		return e.Message
	}
	return "Error interno del servidor"
}
