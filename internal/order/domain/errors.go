package domain

import (
	"errors"
	"fmt"
)

// Error kinds, compared with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrDuplicate  = errors.New("duplicate")

	// ErrUnauthenticated rejects a sign-in with unknown or wrong credentials.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidStatus marks a validation error about a status outside ValidStatuses.
	ErrInvalidStatus = errors.New("invalid status")
)

// Error carries the failed operation and a client-facing message on top of one of the kinds above.
type Error struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

func Conflict(op string, err error) error {
	return &Error{Op: op, Kind: ErrConflict, Message: "concurrent update, please retry", Err: err}
}

// Message returns the client-facing message of err, or "" when err is not an *Error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		if de.Message != "" {
			return de.Message
		}
		return de.Kind.Error()
	}
	return ""
}
