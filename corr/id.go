package corr

import "sync/atomic"

// ID is an opaque identity token handed to the host as callback user-data
// and later used to recover a scratch event. Per the source's own Design
// Notes, this replaces the original's address-as-key pattern (the C and
// Rust implementations key scratch tables by the record's own allocation
// address) with an explicit monotonic index, so the host never holds a
// pointer this package later frees.
type ID uint64

// Allocator hands out a dense, monotonically increasing stream of IDs. One
// Allocator is shared by the Translation and Memory tables for the
// lifetime of a single plugin load.
type Allocator struct {
	next uint64
}

// Next returns the next unused ID. Safe for concurrent use: the host fires
// translation callbacks from arbitrary worker threads.
func (a *Allocator) Next() ID {
	return ID(atomic.AddUint64(&a.next, 1))
}
