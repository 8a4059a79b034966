package flagset

import "testing"

func TestBuildCollapsesReadsWrites(t *testing.T) {
	f := Build(false, true, false, false, false, false)
	if !f.Test(READS_WRITES) {
		t.Fatal("expected READS_WRITES set when only reads requested")
	}
	f = Build(false, false, true, false, false, false)
	if !f.Test(READS_WRITES) {
		t.Fatal("expected READS_WRITES set when only writes requested")
	}
}

func TestReadyIgnoresSyscalls(t *testing.T) {
	request := PC | SYSCALLS
	progress := PC
	if !Ready(request, progress) {
		t.Fatal("expected ready: SYSCALLS bit must not gate readiness")
	}
}

func TestReadyRequiresExactMatch(t *testing.T) {
	request := PC | INSTRS
	progress := PC
	if Ready(request, progress) {
		t.Fatal("expected not ready: INSTRS bit missing from progress")
	}
	progress = PC | INSTRS
	if !Ready(request, progress) {
		t.Fatal("expected ready once all requested bits are set")
	}
}

func TestBranchOnly(t *testing.T) {
	cases := []struct {
		request Set
		want    bool
	}{
		{BRANCHES, true},
		{BRANCHES | PC, false},
		{PC, false},
		{BRANCHES | READS_WRITES, false},
	}
	for _, c := range cases {
		if got := BranchOnly(c.request); got != c.want {
			t.Fatalf("BranchOnly(%v) = %v, want %v", c.request, got, c.want)
		}
	}
}

func TestNoInsn(t *testing.T) {
	if !NoInsn(SYSCALLS) {
		t.Fatal("expected NoInsn true when only SYSCALLS requested")
	}
	if NoInsn(PC | SYSCALLS) {
		t.Fatal("expected NoInsn false once PC is requested")
	}
	if !NoInsn(0) {
		t.Fatal("expected NoInsn true for empty request")
	}
}

func TestWithIsNotMutating(t *testing.T) {
	f := PC
	g := f.With(INSTRS)
	if f.Test(INSTRS) {
		t.Fatal("With must not mutate the receiver")
	}
	if !g.Test(PC) || !g.Test(INSTRS) {
		t.Fatal("With must carry forward existing bits")
	}
}
