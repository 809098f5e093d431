// Package apperror defines the engine's error taxonomy and its mapping onto
// HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindUnknown           Kind = "UNKNOWN"
	KindNotFoundOrExpired Kind = "NOT_FOUND_OR_EXPIRED"
	KindForbidden         Kind = "FORBIDDEN"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindConflict          Kind = "CONFLICT"
	KindUnavailable       Kind = "UNAVAILABLE"
)

// Error is a classified error. Two *Error values match under errors.Is when
// their Kind and Message are equal, so the sentinels below can be compared
// against wrapped copies carrying a cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// With returns a copy of e wrapping cause.
func (e *Error) With(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: cause}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a durable store failure.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: op, Err: err}
}

var (
	ErrSessionNotFound      = New(KindNotFoundOrExpired, "session expired or not found, please start again")
	ErrTimeExpired          = New(KindNotFoundOrExpired, "time expired, the test has been submitted automatically")
	ErrApplicationNotFound  = New(KindNotFoundOrExpired, "application not found")
	ErrTestNotFound         = New(KindNotFoundOrExpired, "test not found")
	ErrForbidden            = New(KindForbidden, "session does not belong to caller")
	ErrApplicationForbidden = New(KindForbidden, "application does not belong to caller")
	ErrNoTestAssigned       = New(KindInvalidInput, "application has no test assigned")
	ErrInvalidQuestion      = New(KindInvalidInput, "question does not belong to this test")
	ErrInvalidOption        = New(KindInvalidInput, "selected option is out of range")
	ErrInvalidEventType     = New(KindInvalidInput, "unknown event type")
	ErrAlreadyAttempted     = New(KindConflict, "test already attempted for this application")
	ErrNotEligible          = New(KindConflict, "application is not eligible to take the test")
	ErrSessionNotActive     = New(KindConflict, "session is not active")
	ErrSkillAlreadyVerified = New(KindConflict, "skill already verified and still valid")
	ErrRetestCooldown       = New(KindConflict, "retest cooldown is active")
)

// KindOf reports the Kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a Kind onto the response status used by the HTTP layer.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFoundOrExpired:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
