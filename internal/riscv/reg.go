// Package riscv defines the virtual-register RV64 instruction set that
// instruction selection lowers SSA IR into, the physical register file
// the allocator assigns, and the function/program containers the
// peephole and emitter stages consume.
package riscv

// Reg names the 32 RV64 integer registers by ABI name; float operands use
// the same set virtually (instruction selection distinguishes the two via
// operand Value.Float, in value.go) since SysY's register budget and the
// original toolchain both avoid a separate float-register file.
type Reg int

const (
	X0 Reg = iota // always zero
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	FP
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

var regNames = [...]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2", "fp", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

func (r Reg) String() string { return regNames[r] }

// CallerSave / CalleeSave partition the general-purpose file by ABI
// convention; RA is caller-save here because instruction selection treats
// call-site RA preservation as the call sequence's own concern, not the
// allocator's.
var CallerSave = []Reg{A0, A1, A2, A3, A4, A5, A6, A7, T0, T1, T2, T3, T4, T5, T6, RA}
var CalleeSave = []Reg{FP, S1, S2, S3, S4, S5, S6, S7, S8, S9, S10, S11}

// Allocable excludes X0 (hardwired zero), RA/SP/GP/TP (reserved for the
// call/stack/linkage protocol) from the pool the graph colorer draws
// from.
var Allocable = []Reg{
	A0, A1, A2, A3, A4, A5, A6, A7,
	T0, T1, T2, T3, T4, T5, T6,
	S1, S2, S3, S4, S5, S6, S7, S8, S9, S10, S11,
}

// ParameterRegs are the eight integer/float argument registers SysY's
// calling convention uses (arrays/pointers and floats alike pass in the
// integer a-registers here, since this backend keeps a single register
// file -- see internal/isel's calling-convention note).
var ParameterRegs = []Reg{A0, A1, A2, A3, A4, A5, A6, A7}

// Index returns this register's position in Allocable, or -1 if it is
// not allocable.
func (r Reg) Index() int {
	for i, x := range Allocable {
		if x == r {
			return i
		}
	}
	return -1
}

var AllocableCount = len(Allocable)
