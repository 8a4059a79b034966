package sender

import (
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/novafacing/cannonball/event"
	"github.com/novafacing/cannonball/flagset"
)

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "cannonball.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln, sockPath
}

func readBatch(t *testing.T, r io.Reader) []*event.Record {
	t.Helper()
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	recs, err := decodeBatch(buf)
	if err != nil {
		t.Fatalf("decodeBatch: %v", err)
	}
	return recs
}

func pcRecord(pc uint64) *event.Record {
	return &event.Record{Flags: flagset.PC, Payload: &event.Pc{PC: pc}}
}

// TestSenderFlushesOnBatchFull exercises scenario S6: submitting exactly
// DefaultBatchSize events triggers one flush, with nothing left over.
func TestSenderFlushesOnBatchFull(t *testing.T) {
	ln, sockPath := listen(t)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	s, err := Setup(sockPath, DefaultBatchSize)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer s.Teardown()

	var conn net.Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never accepted a connection")
	}

	for i := 0; i < DefaultBatchSize; i++ {
		s.Submit(pcRecord(uint64(i)))
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	recs := readBatch(t, conn)
	if len(recs) != DefaultBatchSize {
		t.Fatalf("got %d records in the flushed batch, want %d", len(recs), DefaultBatchSize)
	}
	for i, rec := range recs {
		pc, ok := rec.Payload.(*event.Pc)
		if !ok || pc.PC != uint64(i) {
			t.Fatalf("record %d: got %+v, want PC %d", i, rec.Payload, i)
		}
	}
}

// TestSenderTeardownFlushesPartialBatch verifies an in-progress, not-yet-
// full batch is still flushed on Teardown.
func TestSenderTeardownFlushesPartialBatch(t *testing.T) {
	ln, sockPath := listen(t)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	s, err := Setup(sockPath, DefaultBatchSize)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	var conn net.Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never accepted a connection")
	}

	s.Submit(pcRecord(1))
	s.Submit(pcRecord(2))
	s.Teardown()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	recs := readBatch(t, conn)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
}

// TestSenderTeardownIsIdempotent covers invariant 7: a second Teardown
// call must not block or panic.
func TestSenderTeardownIsIdempotent(t *testing.T) {
	ln, sockPath := listen(t)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			io.Copy(io.Discard, conn)
		}
	}()

	s, err := Setup(sockPath, DefaultBatchSize)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Teardown()
		s.Teardown()
		s.Teardown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("repeated Teardown calls did not return")
	}
}
