// Package isa supplies the machine-code primitives that the abstract
// domain is built against: registers, addresses and concrete words. The
// domain core treats these as given (they are normally produced by a
// disassembler); this package fixes one concrete x86 instantiation so the
// rest of the module has something real to compile and test against.
package isa

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Register names a CPU register, including x86's overlapping
// sub-registers (AL/AX/EAX/RAX all alias the same architectural
// register at different widths). This is exactly the aliasing the
// domain's bit-sliced lvalue reads (`Lval(V(P(r,lo,hi)))`) assume.
type Register struct {
	reg x86asm.Reg
}

// Reg wraps an x86asm register encoding.
func Reg(r x86asm.Reg) Register { return Register{r} }

func (r Register) String() string { return r.reg.String() }

// Equal reports whether two registers name the same sub-register.
func (r Register) Equal(o Register) bool { return r.reg == o.reg }

// Less gives a stable total order over registers, used to order Env keys.
func (r Register) Less(o Register) bool { return r.reg < o.reg }

// sizeTable gives the bit-width of the general-purpose sub-registers.
// Anything not listed here (segment/vector/flag registers, etc.) is
// assumed to be a full machine word; callers that need exact widths for
// those classes should extend this table.
var sizeTable = map[x86asm.Reg]int{
	x86asm.AL: 8, x86asm.CL: 8, x86asm.DL: 8, x86asm.BL: 8,
	x86asm.AH: 8, x86asm.CH: 8, x86asm.DH: 8, x86asm.BH: 8,

	x86asm.AX: 16, x86asm.CX: 16, x86asm.DX: 16, x86asm.BX: 16,
	x86asm.SP: 16, x86asm.BP: 16, x86asm.SI: 16, x86asm.DI: 16,

	x86asm.EAX: 32, x86asm.ECX: 32, x86asm.EDX: 32, x86asm.EBX: 32,
	x86asm.ESP: 32, x86asm.EBP: 32, x86asm.ESI: 32, x86asm.EDI: 32,

	x86asm.RAX: 64, x86asm.RCX: 64, x86asm.RDX: 64, x86asm.RBX: 64,
	x86asm.RSP: 64, x86asm.RBP: 64, x86asm.RSI: 64, x86asm.RDI: 64,
}

// Size returns the bit-width of the register.
func (r Register) Size() int {
	if sz, ok := sizeTable[r.reg]; ok {
		return sz
	}
	return 64
}

// stackPointers lists the sub-register spellings of the stack pointer
// across widths; used by the XOR self-identity evaluator rule to tag
// the result with the Stack region.
var stackPointers = map[x86asm.Reg]bool{
	x86asm.SP: true, x86asm.ESP: true, x86asm.RSP: true,
}

// IsStackPointer reports whether r is some width of the stack pointer.
func (r Register) IsStackPointer() bool { return stackPointers[r.reg] }

// byName resolves the lowercase assembly spelling of a general-purpose
// sub-register, used by the YAML configuration loader to turn a
// register binding's name into a Register without requiring callers to
// depend on x86asm directly.
var byName = map[string]x86asm.Reg{
	"al": x86asm.AL, "cl": x86asm.CL, "dl": x86asm.DL, "bl": x86asm.BL,
	"ah": x86asm.AH, "ch": x86asm.CH, "dh": x86asm.DH, "bh": x86asm.BH,

	"ax": x86asm.AX, "cx": x86asm.CX, "dx": x86asm.DX, "bx": x86asm.BX,
	"sp": x86asm.SP, "bp": x86asm.BP, "si": x86asm.SI, "di": x86asm.DI,

	"eax": x86asm.EAX, "ecx": x86asm.ECX, "edx": x86asm.EDX, "ebx": x86asm.EBX,
	"esp": x86asm.ESP, "ebp": x86asm.EBP, "esi": x86asm.ESI, "edi": x86asm.EDI,

	"rax": x86asm.RAX, "rcx": x86asm.RCX, "rdx": x86asm.RDX, "rbx": x86asm.RBX,
	"rsp": x86asm.RSP, "rbp": x86asm.RBP, "rsi": x86asm.RSI, "rdi": x86asm.RDI,
}

// ParseRegister resolves a register's lowercase assembly spelling
// (e.g. "eax", "rsp") to a Register.
func ParseRegister(name string) (Register, bool) {
	r, ok := byName[name]
	if !ok {
		return Register{}, false
	}
	return Register{r}, true
}

// Address is a concrete byte address in the analyzed image's address space.
type Address uint64

func (a Address) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// Less orders addresses numerically.
func (a Address) Less(o Address) bool { return a < o }

// Word is a concrete bit-string of known width, masked to that width.
type Word struct {
	Bits  int
	Value uint64
}

// NewWord builds a word, masking the value to the given bit width.
func NewWord(bits int, v uint64) Word {
	if bits <= 0 {
		panic("isa.NewWord: non-positive bit width")
	}
	if bits >= 64 {
		return Word{Bits: bits, Value: v}
	}
	return Word{Bits: bits, Value: v & (uint64(1)<<bits - 1)}
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x:%d", w.Value, w.Bits)
}
