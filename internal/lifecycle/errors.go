package lifecycle

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of business-rule rejections. None of them are
// transient, so callers must not retry them.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindAlreadyCancelled
	KindTooLateToCancel
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindAlreadyCancelled:
		return "ALREADY_CANCELLED"
	case KindTooLateToCancel:
		return "TOO_LATE_TO_CANCEL"
	case KindValidation:
		return "VALIDATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// HTTPStatus is the status code the transport should answer with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindAlreadyCancelled, KindTooLateToCancel, KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so sentinels below work with
// errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "Ticket not found"}
	ErrForbidden        = &Error{Kind: KindForbidden, Message: "Access denied. You can only manage your own tickets."}
	ErrAlreadyCancelled = &Error{Kind: KindAlreadyCancelled, Message: "Ticket is already cancelled"}
	ErrTooLateToCancel  = &Error{Kind: KindTooLateToCancel, Message: "Cannot cancel tickets less than 2 days before the visit date"}
	ErrValidation       = &Error{Kind: KindValidation, Message: "Invalid ticket data"}
)

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the rejection kind from err, or 0 when err is not a
// business-rule rejection.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
