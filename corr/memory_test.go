package corr

import (
	"testing"

	"github.com/novafacing/cannonball/event"
	"github.com/novafacing/cannonball/flagset"
)

func newMemRecord() *event.Record {
	return &event.Record{Flags: flagset.READS_WRITES, Payload: &event.MemAccess{PC: 0x400}}
}

func TestMemoryTableExecThenMem(t *testing.T) {
	tbl := NewMemoryTable(0)
	rec := newMemRecord()
	if err := tbl.Insert(1, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, ok := tbl.OnExecute(1); ok {
		t.Fatal("should not be ready after exec alone")
	}
	got, ok := tbl.OnMemAccess(1, 0xdead0000, false)
	if !ok {
		t.Fatal("should be ready once mem-access arrives after exec")
	}
	mem := got.Payload.(*event.MemAccess)
	if mem.Addr != 0xdead0000 || mem.IsWrite {
		t.Fatalf("unexpected payload: %+v", mem)
	}
	if tbl.Len() != 0 {
		t.Fatal("wrapper should be removed once ready")
	}
}

func TestMemoryTableMemThenExec(t *testing.T) {
	tbl := NewMemoryTable(0)
	rec := newMemRecord()
	tbl.Insert(1, rec)
	if _, ok := tbl.OnMemAccess(1, 0xbeef0000, true); ok {
		t.Fatal("should not be ready after mem-access alone")
	}
	got, ok := tbl.OnExecute(1)
	if !ok {
		t.Fatal("should be ready once exec arrives after mem-access")
	}
	mem := got.Payload.(*event.MemAccess)
	if mem.Addr != 0xbeef0000 || !mem.IsWrite {
		t.Fatalf("unexpected payload: %+v", mem)
	}
}

func TestMemoryTableNeverHoldsAReadyWrapper(t *testing.T) {
	tbl := NewMemoryTable(0)
	tbl.Insert(1, newMemRecord())
	tbl.OnExecute(1)
	tbl.OnMemAccess(1, 0, false)
	if tbl.Len() != 0 {
		t.Fatal("invariant 2 violated: a ready wrapper must not remain in the table")
	}
}

func TestMemoryTableAbsentIDIsNotAnError(t *testing.T) {
	tbl := NewMemoryTable(0)
	if _, ok := tbl.OnExecute(999); ok {
		t.Fatal("absent id should never report ready")
	}
	if _, ok := tbl.OnMemAccess(999, 0, false); ok {
		t.Fatal("absent id should never report ready")
	}
}
