package corr

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/corecode"
	"github.com/novafacing/cannonball/event"
)

// memState is the wrapper's completion state. Per the source's Design
// Notes, this replaces the original's two independent booleans
// (mem-seen, exec-seen) with an explicit tagged sum: the Ready transition
// is the only one that submits, and it's reachable from either
// intermediate state depending on which of the two callbacks the host
// fires first.
type memState uint8

const (
	memEmpty memState = iota
	memExecOnly
	memMemOnly
	memReady
)

type memWrapper struct {
	rec   *event.Record
	state memState
}

// MemoryTable parks MemAccess scratch events between the translation
// callback that creates them and whichever of the execute/memory-access
// callbacks arrives last. Each wrapper tracks completion as the 4-state
// machine described above instead of two raw booleans.
type MemoryTable struct {
	mu      sync.Mutex
	entries map[ID]*memWrapper
	cap     int
}

// NewMemoryTable constructs an empty table with the given soft cap. A cap
// <= 0 means DefaultSoftCap.
func NewMemoryTable(softCap int) *MemoryTable {
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	return &MemoryTable{
		entries: make(map[ID]*memWrapper),
		cap:     softCap,
	}
}

// Insert parks rec under id in the Empty state.
func (m *MemoryTable) Insert(id ID, rec *event.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.cap {
		return errors.Wrap(corecode.OutOfMemory, "memory table at soft cap")
	}
	m.entries[id] = &memWrapper{rec: rec, state: memEmpty}
	return nil
}

// OnExecute records that the execute callback fired for id. If the
// memory-access callback already fired too, the wrapper is complete: the
// record is removed and returned for submission. Absence is not an error.
func (m *MemoryTable) OnExecute(id ID) (*event.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	switch w.state {
	case memEmpty:
		w.state = memExecOnly
		return nil, false
	case memMemOnly:
		w.state = memReady
		delete(m.entries, id)
		return w.rec, true
	default:
		// already exec-seen or already submitted; nothing to do
		return nil, false
	}
}

// OnMemAccess records that the memory-access callback fired for id, and
// stamps the event's address and read/write discriminator. If the
// execute callback already fired too, the wrapper is complete.
func (m *MemoryTable) OnMemAccess(id ID, addr uint64, isWrite bool) (*event.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	mem, ok := w.rec.Payload.(*event.MemAccess)
	if ok {
		mem.Addr = addr
		mem.IsWrite = isWrite
	}
	switch w.state {
	case memEmpty:
		w.state = memMemOnly
		return nil, false
	case memExecOnly:
		w.state = memReady
		delete(m.entries, id)
		return w.rec, true
	default:
		return nil, false
	}
}

// Len reports the number of outstanding entries. For tests/metrics only.
func (m *MemoryTable) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
