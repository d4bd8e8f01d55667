// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Completion port counters. Updated lock-free on hot paths, read as a
// point-in-time snapshot for diagnostics.

package control

import (
	"code.hybscloud.com/atomix"
)

// PortStats holds the counters of one completion port.
type PortStats struct {
	posted     atomix.Uint64
	delivered  atomix.Uint64
	timeouts   atomix.Uint64
	spurious   atomix.Uint64
	interrupts atomix.Uint64
	growths    atomix.Uint64
	dispatches atomix.Uint64
	pending    atomix.Uint64
	completed  atomix.Uint64
}

// StatsSnapshot is a copy of PortStats at one instant.
type StatsSnapshot struct {
	Posted     uint64 // events handed to Post
	Delivered  uint64 // events returned from Wait
	Timeouts   uint64 // Wait calls that reported ErrTimedOut
	Spurious   uint64 // wakeups that found nothing to deliver
	Interrupts uint64 // Wait calls that reported ErrInterrupted
	Growths    uint64 // completion queue capacity doublings
	Dispatches uint64 // readiness reports routed to sockets
	Pending    uint64 // socket operations that went asynchronous
	Completed  uint64 // asynchronous socket operations finished
}

func (s *PortStats) IncPosted()     { s.posted.Add(1) }
func (s *PortStats) IncDelivered()  { s.delivered.Add(1) }
func (s *PortStats) IncTimeouts()   { s.timeouts.Add(1) }
func (s *PortStats) IncSpurious()   { s.spurious.Add(1) }
func (s *PortStats) IncInterrupts() { s.interrupts.Add(1) }
func (s *PortStats) IncGrowths()    { s.growths.Add(1) }
func (s *PortStats) IncDispatches() { s.dispatches.Add(1) }
func (s *PortStats) IncPending()    { s.pending.Add(1) }
func (s *PortStats) IncCompleted()  { s.completed.Add(1) }

// Snapshot returns the latest counter values.
func (s *PortStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Posted:     s.posted.Load(),
		Delivered:  s.delivered.Load(),
		Timeouts:   s.timeouts.Load(),
		Spurious:   s.spurious.Load(),
		Interrupts: s.interrupts.Load(),
		Growths:    s.growths.Load(),
		Dispatches: s.dispatches.Load(),
		Pending:    s.pending.Load(),
		Completed:  s.completed.Load(),
	}
}

// AsMap flattens the snapshot for debug probes.
func (s StatsSnapshot) AsMap() map[string]any {
	return map[string]any{
		"posted":     s.Posted,
		"delivered":  s.Delivered,
		"timeouts":   s.Timeouts,
		"spurious":   s.Spurious,
		"interrupts": s.Interrupts,
		"growths":    s.Growths,
		"dispatches": s.Dispatches,
		"pending":    s.Pending,
		"completed":  s.Completed,
	}
}
