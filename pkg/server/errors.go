package server

import "fmt"

type ErrorCode uint

const (
	ErrInternalServerError ErrorCode = iota
	ErrNotFound
	ErrInvalidArgument
	ErrConflict
)

// Error wraps a lower-level error with an application error code. Handlers
// switch on the code to pick the http status.
type Error struct {
	orig error
	msg  string
	code ErrorCode
}

func NewErrorf(code ErrorCode, format string, a ...interface{}) error {
	return &Error{
		code: code,
		msg:  fmt.Sprintf(format, a...),
	}
}

func WrapErrorf(orig error, code ErrorCode, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func (e *Error) Code() ErrorCode {
	return e.code
}
