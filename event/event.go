// Package event defines the guest event record the correlation core
// assembles and hands to the batch sender. Shapes mirror
// original_source/cannonball-client/src/qemu_event.rs's QemuEvent payloads.
// Fields need no struc tags — github.com/lunixbochs/struc packs plain
// fixed-width Go fields (and fixed-size arrays) natively, the way
// go/syscalls/iovec.go's untagged Iovec32/Iovec64 do.
package event

import "github.com/novafacing/cannonball/flagset"

// MaxOpcodeSize bounds the opcode bytes carried by an Instr event.
const MaxOpcodeSize = 16

// NumSyscallArgs is the number of argument words the host exposes per
// syscall.
const NumSyscallArgs = 8

// Kind names which payload a Record carries.
type Kind uint8

const (
	KindLoad Kind = iota
	KindPc
	KindInstr
	KindMemAccess
	KindSyscall
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "Load"
	case KindPc:
		return "Pc"
	case KindInstr:
		return "Instr"
	case KindMemAccess:
		return "MemAccess"
	case KindSyscall:
		return "Syscall"
	default:
		return "Unknown"
	}
}

// Payload is implemented by exactly one concrete type per Record.
type Payload interface {
	Kind() Kind
}

// Record is a single guest event: a Flag Set naming its kind (and, while
// in flight, its progress) plus exactly one payload.
type Record struct {
	Flags   flagset.Set
	Payload Payload
}

// Load describes the guest program image, emitted once per plugin
// lifetime on the first translation callback.
type Load struct {
	Min   uint64
	Max   uint64
	Entry uint64
	Prot  uint8
}

func (Load) Kind() Kind { return KindLoad }

// Pc is an executed instruction's program counter, plus whether it is the
// last instruction of its translation block.
type Pc struct {
	PC     uint64
	Branch bool
}

func (Pc) Kind() Kind { return KindPc }

// Instr is an executed instruction's program counter and raw opcode bytes.
// Opcode is always MaxOpcodeSize long on the wire; OpcodeSize says how much
// of it is meaningful.
type Instr struct {
	PC         uint64
	OpcodeSize uint8
	Opcode     [MaxOpcodeSize]byte
}

func (Instr) Kind() Kind { return KindInstr }

// MemAccess is a memory access performed by an executed instruction.
type MemAccess struct {
	PC      uint64
	Addr    uint64
	IsWrite bool
}

func (MemAccess) Kind() Kind { return KindMemAccess }

// Syscall is a completed syscall: its number, arguments, and return value.
type Syscall struct {
	Num  int64
	RV   int64
	Args [NumSyscallArgs]uint64
}

func (Syscall) Kind() Kind { return KindSyscall }
