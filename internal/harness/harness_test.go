package harness

import (
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/callback"
	"github.com/novafacing/cannonball/event"
	"github.com/novafacing/cannonball/flagset"
)

var errFailingWorker = errors.New("simulated vcpu workload failure")

type countingSink struct {
	mu    sync.Mutex
	count int
}

func (c *countingSink) Submit(rec *event.Record) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

type fixedHost struct{ min, max, entry uint64 }

func (h fixedHost) ImageBounds() (uint64, uint64, uint64) { return h.min, h.max, h.entry }

// TestRunDrivesConcurrentVCPUs exercises the Machine from many simulated
// VCPUs at once: each VCPU translates and executes its own one-instruction
// TB, and the total submission count must account for exactly one Load
// plus one Pc event per VCPU, regardless of goroutine interleaving.
func TestRunDrivesConcurrentVCPUs(t *testing.T) {
	sink := &countingSink{}
	m := callback.New(flagset.PC, 8, sink, fixedHost{min: 0x1000, max: 0x2000, entry: 0x1000})

	const vcpus = 8
	err := Run(m, vcpus, func(vcpu int, m *callback.Machine) error {
		tb := NewSimTB(callback.Instruction{PC: uint64(0x1000 + vcpu*4), Size: 4})
		m.OnTranslate(tb)
		tb.Execute(vcpu, m)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.count != vcpus+1 {
		t.Fatalf("got %d submissions, want %d (1 Load + %d Pc)", sink.count, vcpus+1, vcpus)
	}
}

// TestRunPropagatesFirstError confirms a failing VCPU workload surfaces
// through Run.
func TestRunPropagatesFirstError(t *testing.T) {
	sink := &countingSink{}
	m := callback.New(flagset.PC, 4, sink, fixedHost{})

	boom := errFailingWorker
	err := Run(m, 4, func(vcpu int, m *callback.Machine) error {
		if vcpu == 2 {
			return boom
		}
		return nil
	})
	if err != boom {
		t.Fatalf("got %v, want %v", err, boom)
	}
}
