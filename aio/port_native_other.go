//go:build !windows

// File: aio/port_native_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"fmt"

	"github.com/missionlove/nanomsg/api"
)

func newNativePort(Config) (CompletionPort, error) {
	return nil, fmt.Errorf("aio: native completion port: %w", api.ErrNotSupported)
}
