// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the asynchronous socket layer.

package api

import (
	"errors"
	"fmt"
)

// Portable error vocabulary. Platform codes are translated into these by
// internal/errno so upper layers branch on one set of values.
var (
	ErrTimedOut          = errors.New("timed out")
	ErrInterrupted       = errors.New("interrupted system call")
	ErrInProgress        = errors.New("operation in progress")
	ErrConnReset         = errors.New("connection reset")
	ErrConnRefused       = errors.New("connection refused")
	ErrAddrInUse         = errors.New("address already in use")
	ErrAddrNotAvailable  = errors.New("address not available")
	ErrAccessDenied      = errors.New("permission denied")
	ErrTooManyFiles      = errors.New("too many open files")
	ErrNoBuffers         = errors.New("no buffer space available")
	ErrClosed            = errors.New("use of closed socket")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
)

// OpError records a failed socket or port operation. It unwraps to both the
// portable sentinel and the raw platform error, so errors.Is matches either.
type OpError struct {
	Op  string // "send", "recv", "accept", "epoll_wait", ...
	Err error  // portable sentinel, nil when the code has no portable meaning
	Sys error  // platform error as returned by the kernel
}

func (e *OpError) Error() string {
	switch {
	case e.Err != nil && e.Sys != nil:
		return e.Op + ": " + e.Err.Error() + " (" + e.Sys.Error() + ")"
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Sys != nil:
		return e.Op + ": " + e.Sys.Error()
	}
	return e.Op + ": unknown error"
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if e.Sys != nil {
		out = append(out, e.Sys)
	}
	return out
}

// IsConnectionFatal reports whether err ends the connection it was raised on.
func IsConnectionFatal(err error) bool {
	return errors.Is(err, ErrConnReset) || errors.Is(err, ErrClosed)
}
