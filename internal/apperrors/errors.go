package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies a failure independently of the layer that produced it.
type Kind string

const (
	InvalidArgument        Kind = "INVALID_ARGUMENT"
	PolicyViolation        Kind = "POLICY_VIOLATION"
	NotFound               Kind = "NOT_FOUND"
	Unauthorized           Kind = "UNAUTHORIZED"
	Forbidden              Kind = "FORBIDDEN"
	InvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	AlreadyConverted       Kind = "ALREADY_CONVERTED"
	TransactionFailed      Kind = "TRANSACTION_FAILED"
	Internal               Kind = "INTERNAL"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidArgument        = &Error{Kind: InvalidArgument}
	ErrPolicyViolation        = &Error{Kind: PolicyViolation}
	ErrNotFound               = &Error{Kind: NotFound}
	ErrUnauthorized           = &Error{Kind: Unauthorized}
	ErrForbidden              = &Error{Kind: Forbidden}
	ErrInvalidStateTransition = &Error{Kind: InvalidStateTransition}
	ErrAlreadyConverted       = &Error{Kind: AlreadyConverted}
	ErrTransactionFailed      = &Error{Kind: TransactionFailed}
	ErrInternal               = &Error{Kind: Internal}
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the client-facing message for err. Internal failures
// never expose the underlying cause.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	switch e.Kind {
	case Internal, TransactionFailed:
		if e.Message != "" {
			return e.Message
		}
		return "internal server error"
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case InvalidArgument, PolicyViolation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidStateTransition, AlreadyConverted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
