package callback

import "github.com/novafacing/cannonball/corr"

// Instruction is the host's description of a single instruction inside a
// translated block: its virtual address, the number of opcode bytes that
// follow, and the opcode bytes themselves (at least Size long).
type Instruction struct {
	PC     uint64
	Size   uint8
	Opcode []byte
}

// TranslationBlock is the host's per-TB handle, offered to Machine.OnTranslate.
// The host owns the callback registration mechanics (qemu_plugin-style
// vcpu_insn_exec/vcpu_mem callback registration in the real host); Machine
// only needs to name which instruction index an identity token belongs to.
type TranslationBlock interface {
	// Instructions returns every instruction in the block, in program order.
	Instructions() []Instruction
	// RegisterExecute asks the host to invoke Machine.OnExecute(vcpu, id)
	// once insns[insnIndex] executes.
	RegisterExecute(insnIndex int, id corr.ID)
	// RegisterMemExecute asks the host to invoke Machine.OnMemExecute(vcpu, id)
	// once insns[insnIndex] executes, independent of RegisterExecute.
	RegisterMemExecute(insnIndex int, id corr.ID)
	// RegisterMemAccess asks the host to invoke Machine.OnMemAccess with id
	// whenever insns[insnIndex] performs a memory access.
	RegisterMemAccess(insnIndex int, id corr.ID)
}

// Host is the subset of the host emulator's ABI the Machine queries
// directly rather than receiving through a callback argument.
type Host interface {
	// ImageBounds returns the guest program's start_code, end_code, and
	// entry_code virtual addresses. Queried exactly once, on the first
	// translation callback.
	ImageBounds() (min, max, entry uint64)
}
