// Package coordinate implements cross-run synchronization: the Coordinator
// policy interface, its concrete strategies (Latch, Serial, Parallel,
// NoOverlap, Dependency, Composite, NoSync), and the process-wide Locker a
// Runner uses to make the decide-then-wait step atomic.
package coordinate

import "fmt"

// Signal is the verdict a Coordinator returns each time the runner's
// coordination loop consults it. None is never a valid return value from
// SetSignal; it exists only as the zero value.
type Signal uint8

const (
	None Signal = iota
	Continue
	Wait
	Reject
)

func (s Signal) String() string {
	switch s {
	case Continue:
		return "CONTINUE"
	case Wait:
		return "WAIT"
	case Reject:
		return "REJECT"
	default:
		return fmt.Sprintf("Signal(%d)", uint8(s))
	}
}
