package pipeline

import "sync/atomic"

// Epoch is a monotonic request counter. A caller that starts a pipeline run
// for every configuration or visibility change takes a ticket with Next and
// applies the result only if IsCurrent still holds when the run completes.
// Overtaken runs are not cancelled; their results are simply dropped.
//
// The zero value is ready to use.
type Epoch struct {
	n atomic.Uint64
}

// Next starts a new epoch and returns its ticket.
func (e *Epoch) Next() uint64 { return e.n.Add(1) }

// Current returns the latest ticket handed out.
func (e *Epoch) Current() uint64 { return e.n.Load() }

// IsCurrent reports whether ticket is the latest one.
func (e *Epoch) IsCurrent(ticket uint64) bool { return e.n.Load() == ticket }
