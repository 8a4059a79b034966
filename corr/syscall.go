package corr

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/event"
)

// ErrVCPUOutOfRange is returned by SyscallTable when a VCPU index exceeds
// the table's fixed capacity.
var ErrVCPUOutOfRange = errors.New("vcpu index out of range")

// ErrSyscallMismatch is returned by Take when the stored syscall number
// does not match the syscall-return callback's number. The stale entry is
// removed regardless.
var ErrSyscallMismatch = errors.New("syscall number mismatch")

// SyscallTable holds at most one in-flight syscall per VCPU. Per the
// source's Design Notes, this is a fixed-size array indexed by VCPU id
// rather than a general map — go/models/loopdetect.go's fixed-capacity,
// index-addressed history buffer is the closest teacher analogue of this
// "small bounded array, no map" shape. The "at most one per VCPU"
// invariant is then structural: there is exactly one slot per index.
type SyscallTable struct {
	mu    sync.Mutex
	slots []*event.Record
}

// NewSyscallTable constructs a table sized for maxVCPUs virtual CPUs.
func NewSyscallTable(maxVCPUs int) *SyscallTable {
	return &SyscallTable{slots: make([]*event.Record, maxVCPUs)}
}

// Put replaces any prior entry for vcpu with rec. The replaced entry, if
// any, is returned so the caller can log its loss — a VCPU executing a
// second syscall entry before the first one returns indicates either a
// host bug or an execution path this plugin cannot follow.
func (s *SyscallTable) Put(vcpu int, rec *event.Record) (evicted *event.Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vcpu < 0 || vcpu >= len(s.slots) {
		return nil, ErrVCPUOutOfRange
	}
	evicted = s.slots[vcpu]
	s.slots[vcpu] = rec
	return evicted, nil
}

// Take removes and returns the entry for vcpu iff its stored syscall
// number matches expectedNum. On mismatch the entry is still removed (and
// dropped) and ErrSyscallMismatch is returned. An empty slot returns
// (nil, false, nil).
func (s *SyscallTable) Take(vcpu int, expectedNum int64) (rec *event.Record, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vcpu < 0 || vcpu >= len(s.slots) {
		return nil, false, ErrVCPUOutOfRange
	}
	rec = s.slots[vcpu]
	s.slots[vcpu] = nil
	if rec == nil {
		return nil, false, nil
	}
	sc, isSyscall := rec.Payload.(*event.Syscall)
	if !isSyscall || sc.Num != expectedNum {
		return nil, false, ErrSyscallMismatch
	}
	return rec, true, nil
}

// Len reports the number of occupied slots. For tests/metrics only.
func (s *SyscallTable) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.slots {
		if r != nil {
			n++
		}
	}
	return n
}
