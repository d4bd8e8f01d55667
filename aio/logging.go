// File: aio/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"sync"

	"github.com/missionlove/nanomsg/control"
)

var globalLogger struct {
	sync.RWMutex
	logger *control.Logger
}

// SetLogger installs the package logger used by sockets and by ports built
// without WithLogger. Nil restores the default.
func SetLogger(l *control.Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = l
}

func logger() *control.Logger {
	globalLogger.RLock()
	l := globalLogger.logger
	globalLogger.RUnlock()
	if l != nil {
		return l
	}
	return defaultLogger()
}

var defaultLogger = sync.OnceValue(control.DefaultLogger)
