// File: internal/errno/errno.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Translation of platform failure codes into the portable error vocabulary
// declared in package api.

package errno

import (
	"errors"
	"syscall"

	"github.com/missionlove/nanomsg/api"
)

// Translate wraps err, as returned by a system call named op, into an
// *api.OpError carrying the portable sentinel for its code.
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var code syscall.Errno
	if !errors.As(err, &code) {
		return &api.OpError{Op: op, Sys: err}
	}
	return &api.OpError{Op: op, Err: portable(code), Sys: code}
}

// ConnReset wraps err as a connection-reset failure regardless of its
// platform cause.
func ConnReset(op string, err error) error {
	return &api.OpError{Op: op, Err: api.ErrConnReset, Sys: err}
}

// Code extracts the raw platform code from err, or zero.
func Code(err error) syscall.Errno {
	var code syscall.Errno
	if errors.As(err, &code) {
		return code
	}
	return 0
}
