// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, structured logging and debug introspection for the
// completion layer.
//
// Provides concurrent-safe state handling primitives including:
//   - Lock-free completion port counters with point-in-time snapshots
//   - Logger construction on top of logiface
//   - State export, debug hooks, and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
