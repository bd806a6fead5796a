package gateway

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrKindConfig       ErrorKind = "config"
	ErrKindConnection   ErrorKind = "connection"
	ErrKindAuth         ErrorKind = "auth"
	ErrKindNotFound     ErrorKind = "not_found"
	ErrKindHTTPStatus   ErrorKind = "http_status"
	ErrKindMalformed    ErrorKind = "malformed"
	ErrKindMissingField ErrorKind = "missing_field"
	ErrKindUpstream     ErrorKind = "upstream"
)

// Error is the only error type returned across the gateway boundary.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrKindUpstream:
		// upstream messages are shown to the user verbatim
		return e.Message
	case ErrKindHTTPStatus:
		return fmt.Sprintf("gateway returned HTTP %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("gateway %s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Kind == kind
}
