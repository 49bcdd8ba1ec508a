package server

import (
	"errors"
	"fmt"
)

// Error error dengan kode kategori untuk di-mapping ke http status.
type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Code() error {
	return e.code
}

var (
	ErrInternalServerError = errors.New("internal server error")
	// ErrNotFound data yang diminta tidak ada (mis. history speed belum diturunkan).
	ErrNotFound      = errors.New("requested item is not found")
	ErrConflict      = errors.New("item already exist")
	ErrBadParamInput = errors.New("given param is not valid")
)

const MessageInternalServerError = "internal server error"
