package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rede-de-patas/patas-api/internal/policy"
)

// Kind classifies a service failure. The HTTP layer maps each kind to one
// status code.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalid
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the typed outcome of every expected failure of a service call.
type Error struct {
	Kind Kind

	// Reason is set on Forbidden errors.
	Reason policy.Reason

	// Resource and ID identify the missing record of a NotFound error.
	Resource string
	ID       int64

	Msg string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Kind == KindForbidden:
		return fmt.Sprintf("forbidden: %s", e.Reason)
	case e.Kind == KindNotFound:
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// ReasonOf returns the deny reason carried by err, if any.
func ReasonOf(err error) policy.Reason {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

func unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Msg: msg}
}

func forbidden(reason policy.Reason) *Error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

func notFound(resource string, id int64) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, ID: id}
}

func conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

func invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Msg: msg}
}

// unavailable wraps an unexpected store failure. The cause is logged here and
// hidden from clients.
func unavailable(op string, err error) *Error {
	slog.Error("store operation failed", "op", op, "error", err)
	return &Error{Kind: KindUnavailable, Msg: "service temporarily unavailable", Err: err}
}
