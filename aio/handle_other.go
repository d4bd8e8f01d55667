//go:build !windows

// File: aio/handle_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

// handleSys is empty where operations complete through readiness.
type handleSys struct{}
