// File: api/events.go
// Package api defines core event types for the completion layer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Event is one completion delivered by a completion port.
type Event struct {
	// Op is the caller-defined tag identifying the logical operation.
	Op int
	// Arg identifies the context: the value given to Post, or the
	// *aio.Handle of a finished socket operation.
	Arg any
}
