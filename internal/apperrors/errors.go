package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindStorage    Kind = "STORAGE"
)

// Error is the single error type returned by services and stores.
// Details carries one message per field for validation failures.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a user-correctable input error. The first message doubles as the summary.
func Validation(msgs ...string) *Error {
	summary := "invalid input"
	if len(msgs) > 0 {
		summary = strings.Join(msgs, "; ")
	}
	return &Error{Kind: KindValidation, Message: summary, Details: msgs}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict is used for duplicate primary keys on create.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Storage wraps a persistence failure. op names the failed operation.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op + " failed", Err: err}
}

// IsKind reports whether err (or anything it wraps) is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation, KindConflict:
			return http.StatusBadRequest
		case KindNotFound:
			return http.StatusNotFound
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show to API callers and the per-field details.
// Storage causes are never echoed.
func PublicMessage(err error) (string, []string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Message, e.Details
	}
	return "internal error", nil
}
