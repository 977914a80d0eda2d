// Package gc implements strategy-driven victim selection that emits a
// serialisable plan of Move+Erase events. Manager observes BlockTable
// snapshots and mutates nothing itself; a separate executor consumes the
// plan via ordinary TL reads, writes, and erases.
package gc

import "github.com/wondfs-go/flashfs/internal/flashpage"

// EventKind is the Move|Erase tagged union of a plan step.
type EventKind int

const (
	Move EventKind = iota
	Erase
)

// Event is one step of a GC plan. For Move events, Ino/Size/Src/Dst
// describe the contiguous run being relocated; for the terminal Erase
// event only Victim is meaningful.
type Event struct {
	Index  int
	Kind   EventKind
	Ino    uint64
	Size   int
	Src    flashpage.LPA
	Dst    flashpage.LPA
	Victim flashpage.BlockNo
}

// Plan is an ordered sequence of events: zero or more Move events followed
// by exactly one terminal Erase event.
type Plan []Event
