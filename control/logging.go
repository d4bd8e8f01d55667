// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// Structured logger construction. Everything logs through logiface; stumpy
// renders JSON lines.

package control

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the logger type accepted throughout the module.
type Logger = logiface.Logger[logiface.Event]

// NewLogger builds a JSON logger writing to w at the given minimum level.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// DefaultLogger logs warnings and above to stderr.
func DefaultLogger() *Logger {
	return NewLogger(os.Stderr, logiface.LevelWarning)
}

// DiscardLogger drops everything.
func DiscardLogger() *Logger {
	return NewLogger(io.Discard, logiface.LevelDisabled)
}
