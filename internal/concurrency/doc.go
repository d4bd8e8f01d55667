// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency building blocks for the completion layer. GrowRing backs the
// emulated completion queue; synchronization is left to the owner so a
// single mutex covers both the ring and the wakeup signal transitions.
package concurrency
