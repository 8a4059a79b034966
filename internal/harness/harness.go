// Package harness drives a callback.Machine from simulated host callbacks,
// for exercising the correlation core without a real emulator attached. It
// has no invariants of its own — it is scaffolding over the core, used by
// the demo CLI and by tests that want several VCPUs hammering the Machine
// concurrently.
package harness

import (
	"golang.org/x/sync/errgroup"

	"github.com/novafacing/cannonball/callback"
)

// VCPUWork is one simulated VCPU's workload: whatever sequence of
// OnTranslate/OnExecute/OnSyscallEnter/... calls it wants to make against
// m. vcpu is this worker's VCPU index.
type VCPUWork func(vcpu int, m *callback.Machine) error

// Run drives n simulated VCPUs concurrently against m, each running work,
// grounded on the shard-fan-out shape in
// github.com/mknyszek/goat's parse.go (one errgroup.Group, one goroutine
// per shard, first error wins).
func Run(m *callback.Machine, n int, work VCPUWork) error {
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		vcpu := i
		eg.Go(func() error {
			return work(vcpu, m)
		})
	}
	return eg.Wait()
}
