package corr

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/corecode"
	"github.com/novafacing/cannonball/event"
)

// DefaultSoftCap bounds the number of outstanding scratch events a table
// will hold before Insert starts refusing new entries. The original C/Rust
// source has no such cap (an unbounded GHashTable); this implementation
// surfaces one per spec's suggestion that a real implementation should.
const DefaultSoftCap = 1 << 20

// TranslationTable parks Pc and Instr scratch events between the
// translation callback that creates them and the execute callback that
// completes them. Grounded on go/models/discache.go's
// sync.RWMutex-guarded map, generalized from a read-mostly cache to a
// table with a present write-then-remove lifecycle per entry.
type TranslationTable struct {
	mu      sync.Mutex
	entries map[ID]*event.Record
	cap     int
}

// NewTranslationTable constructs an empty table with the given soft cap.
// A cap <= 0 means DefaultSoftCap.
func NewTranslationTable(softCap int) *TranslationTable {
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	return &TranslationTable{
		entries: make(map[ID]*event.Record),
		cap:     softCap,
	}
}

// Insert parks rec under id. Returns corecode.OutOfMemory if the table is
// at its soft cap.
func (t *TranslationTable) Insert(id ID, rec *event.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) >= t.cap {
		return errors.Wrap(corecode.OutOfMemory, "translation table at soft cap")
	}
	t.entries[id] = rec
	return nil
}

// Lookup returns the record parked under id, if any. The returned pointer
// is only safe to read; callers must not assume it stays valid once the
// lock is released, since a concurrent Remove may detach it.
func (t *TranslationTable) Lookup(id ID) (*event.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.entries[id]
	return rec, ok
}

// Remove detaches and returns the record parked under id, transferring
// ownership to the caller. Absence is not an error: it means the event
// was already correlated and removed by a concurrent callback, or never
// belonged to this table.
func (t *TranslationTable) Remove(id ID) (*event.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return rec, ok
}

// Len reports the number of outstanding entries. For tests/metrics only.
func (t *TranslationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
