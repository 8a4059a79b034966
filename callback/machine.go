// Package callback implements the event-correlation state machine: the
// component that receives the host emulator's translation, execution,
// memory, and syscall callbacks and drives the correlation tables until
// complete events can be submitted to the sender. Grounded on
// go/cpu/unicorn/unicorn.go's one-Go-method-per-host-callback-kind
// dispatch shape.
package callback

import (
	"sync"

	"github.com/apex/log"

	"github.com/novafacing/cannonball/corr"
	"github.com/novafacing/cannonball/event"
	"github.com/novafacing/cannonball/flagset"
	"github.com/novafacing/cannonball/sender"
)

// Submitter is the subset of *sender.Sender the Machine needs. Exists so
// tests can substitute a recording fake without standing up a real socket.
type Submitter interface {
	Submit(rec *event.Record)
}

var _ Submitter = (*sender.Sender)(nil)

// Machine is the process-wide correlation state. One Machine exists per
// plugin load; per the source's Design Notes it is threaded through the
// host's callbacks explicitly rather than kept as module-level state.
type Machine struct {
	request flagset.Set

	alloc       *corr.Allocator
	translation *corr.TranslationTable
	memory      *corr.MemoryTable
	syscalls    *corr.SyscallTable

	sink Submitter
	host Host

	loadOnce sync.Once
}

// New constructs a Machine for the given request mask and VCPU count. sink
// is usually a *sender.Sender; host is the adapter the plugin's install
// routine builds over the real emulator ABI.
func New(request flagset.Set, maxVCPUs int, sink Submitter, host Host) *Machine {
	return &Machine{
		request:     request,
		alloc:       &corr.Allocator{},
		translation: corr.NewTranslationTable(0),
		memory:      corr.NewMemoryTable(0),
		syscalls:    corr.NewSyscallTable(maxVCPUs),
		sink:        sink,
		host:        host,
	}
}

// OnTranslate handles a translation-block-translated callback: §4.3.1.
func (m *Machine) OnTranslate(tb TranslationBlock) {
	m.loadOnce.Do(func() {
		min, max, entry := m.host.ImageBounds()
		m.sink.Submit(&event.Record{
			Flags:   flagset.LOAD,
			Payload: &event.Load{Min: min, Max: max, Entry: entry, Prot: 0x7},
		})
	})

	insns := tb.Instructions()
	n := len(insns)
	if n == 0 {
		return
	}

	iStart := 0
	if flagset.BranchOnly(m.request) {
		iStart = n - 1
	}

	for i := iStart; i < n; i++ {
		insn := insns[i]
		branch := i == n-1

		branchPC := branch && m.request.Test(flagset.BRANCHES)
		if m.request.Test(flagset.PC) || branchPC {
			id := m.alloc.Next()
			flags := flagset.PC
			if branchPC {
				flags = flags.With(flagset.BRANCHES)
			}
			rec := &event.Record{Flags: flags, Payload: &event.Pc{PC: insn.PC, Branch: branch}}
			if err := m.translation.Insert(id, rec); err != nil {
				log.WithError(err).Warn("callback: dropping Pc event, translation table full")
			} else {
				tb.RegisterExecute(i, id)
			}
		}

		if m.request.Test(flagset.INSTRS) {
			id := m.alloc.Next()
			size := insn.Size
			if int(size) > event.MaxOpcodeSize {
				size = event.MaxOpcodeSize
			}
			var opcode [event.MaxOpcodeSize]byte
			copy(opcode[:size], insn.Opcode[:size])
			rec := &event.Record{
				Flags:   flagset.INSTRS,
				Payload: &event.Instr{PC: insn.PC, OpcodeSize: size, Opcode: opcode},
			}
			if err := m.translation.Insert(id, rec); err != nil {
				log.WithError(err).Warn("callback: dropping Instr event, translation table full")
			} else {
				tb.RegisterExecute(i, id)
			}
		}

		if m.request.Test(flagset.READS_WRITES) {
			id := m.alloc.Next()
			rec := &event.Record{Flags: flagset.READS_WRITES, Payload: &event.MemAccess{PC: insn.PC}}
			if err := m.memory.Insert(id, rec); err != nil {
				log.WithError(err).Warn("callback: dropping MemAccess event, memory table full")
			} else {
				tb.RegisterMemExecute(i, id)
				tb.RegisterMemAccess(i, id)
			}
		}
	}
}

// OnExecute handles a per-instruction-executed callback for a Pc or Instr
// event: §4.3.2. Absence of id in the translation table is not an error.
func (m *Machine) OnExecute(vcpu int, id corr.ID) {
	rec, ok := m.translation.Remove(id)
	if !ok {
		return
	}
	m.sink.Submit(rec)
}

// OnMemExecute handles the execute half of a MemAccess event's pair of
// completion callbacks: §4.3.3.
func (m *Machine) OnMemExecute(vcpu int, id corr.ID) {
	rec, ok := m.memory.OnExecute(id)
	if !ok {
		return
	}
	m.sink.Submit(rec)
}

// OnMemAccess handles the memory half of a MemAccess event's pair of
// completion callbacks: §4.3.4.
func (m *Machine) OnMemAccess(vcpu int, id corr.ID, addr uint64, isWrite bool) {
	rec, ok := m.memory.OnMemAccess(id, addr, isWrite)
	if !ok {
		return
	}
	m.sink.Submit(rec)
}

// OnSyscallEnter handles a syscall-entered callback: §4.3.5.
func (m *Machine) OnSyscallEnter(vcpu int, num int64, args [event.NumSyscallArgs]uint64) {
	rec := &event.Record{
		Flags:   flagset.SYSCALLS,
		Payload: &event.Syscall{Num: num, RV: -1, Args: args},
	}
	evicted, err := m.syscalls.Put(vcpu, rec)
	if err != nil {
		log.WithError(err).WithField("vcpu", vcpu).Error("callback: syscall entry rejected")
		return
	}
	if evicted != nil {
		log.WithField("vcpu", vcpu).Warn("callback: syscall entry without a prior return, dropping stale entry")
	}
}

// OnSyscallReturn handles a syscall-returned callback: §4.3.6.
func (m *Machine) OnSyscallReturn(vcpu int, num int64, rv int64) {
	rec, ok, err := m.syscalls.Take(vcpu, num)
	if err != nil {
		log.WithError(err).WithField("vcpu", vcpu).Error("callback: syscall number mismatch on return")
		return
	}
	if !ok {
		return
	}
	sc := rec.Payload.(*event.Syscall)
	sc.RV = rv
	m.sink.Submit(rec)
}

// OnVCPUExit handles the at-exit callback: §4.3.7. It tears down the
// sender, which flushes any partial batch and closes the socket.
func (m *Machine) OnVCPUExit(vcpu int) {
	if t, ok := m.sink.(interface{ Teardown() }); ok {
		t.Teardown()
	}
}
