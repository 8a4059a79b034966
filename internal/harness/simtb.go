package harness

import (
	"github.com/novafacing/cannonball/callback"
	"github.com/novafacing/cannonball/corr"
)

// SimTB is a minimal callback.TranslationBlock: a host stand-in that
// records whatever the Machine registers against it, then lets the
// caller drive those registrations back in program order, as if each
// instruction had just executed.
type SimTB struct {
	insns     []callback.Instruction
	exec      map[int]corr.ID
	memExec   map[int]corr.ID
	memAccess map[int]corr.ID
}

// NewSimTB builds a SimTB over insns, in program order.
func NewSimTB(insns ...callback.Instruction) *SimTB {
	return &SimTB{
		insns:     insns,
		exec:      map[int]corr.ID{},
		memExec:   map[int]corr.ID{},
		memAccess: map[int]corr.ID{},
	}
}

func (s *SimTB) Instructions() []callback.Instruction { return s.insns }
func (s *SimTB) RegisterExecute(i int, id corr.ID)    { s.exec[i] = id }
func (s *SimTB) RegisterMemExecute(i int, id corr.ID) { s.memExec[i] = id }
func (s *SimTB) RegisterMemAccess(i int, id corr.ID)  { s.memAccess[i] = id }

// Execute fires the execute and memory-execute callbacks for every
// instruction that registered one, in program order, as vcpu.
func (s *SimTB) Execute(vcpu int, m *callback.Machine) {
	for i := range s.insns {
		if id, ok := s.exec[i]; ok {
			m.OnExecute(vcpu, id)
		}
		if id, ok := s.memExec[i]; ok {
			m.OnMemExecute(vcpu, id)
		}
	}
}

// MemAccess fires instruction i's memory-access callback, if it
// registered one. Reports whether it did.
func (s *SimTB) MemAccess(vcpu, i int, m *callback.Machine, addr uint64, isWrite bool) bool {
	id, ok := s.memAccess[i]
	if !ok {
		return false
	}
	m.OnMemAccess(vcpu, id, addr, isWrite)
	return true
}
