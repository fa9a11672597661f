package ir

import (
	"fmt"
	"strings"
)

// Instruction is implemented by every SSA instruction. At most one
// temporary is defined (Result() returns nil for the rest).
type Instruction interface {
	fmt.Stringer

	// Result is the temporary this instruction defines, or nil.
	Result() *Value
	// Operands returns every Value this instruction reads, in a fixed,
	// deterministic order.
	Operands() []*Value
	// ReplaceOperand rewrites an operand in place, used by value-numbering,
	// useless-phi removal and inlining's parameter substitution.
	ReplaceOperand(old, new *Value)
	// Pure reports whether the instruction has no observable side effect
	// beyond defining its result (no store, no call, no terminator).
	Pure() bool
}

// Terminator is implemented by the three instructions that may end a basic
// block: Jump, CondJump, Ret.
type Terminator interface {
	Instruction
	Successors() []*BasicBlock
}

// ArithOp / CmpOp enumerate the opcodes of BinaryInstr / CompareInstr.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
)

func (op ArithOp) String() string {
	return [...]string{"add", "sub", "mul", "div", "rem", "fadd", "fsub", "fmul", "fdiv"}[op]
}

func (op ArithOp) IsFloat() bool { return op >= OpFAdd }

type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpSlt
	CmpSle
	CmpSgt
	CmpSge
	CmpFEq
	CmpFNe
	CmpFLt
	CmpFLe
	CmpFGt
	CmpFGe
)

func (op CmpOp) String() string {
	return [...]string{"eq", "ne", "slt", "sle", "sgt", "sge",
		"feq", "fne", "flt", "fle", "fgt", "fge"}[op]
}

func (op CmpOp) IsFloat() bool { return op >= CmpFEq }

// BinaryInstr is an arithmetic instruction: `%r = <op> %lhs, %rhs`.
type BinaryInstr struct {
	Dst      *Value
	Op       ArithOp
	LHS, RHS *Value
}

func (i *BinaryInstr) Result() *Value      { return i.Dst }
func (i *BinaryInstr) Operands() []*Value  { return []*Value{i.LHS, i.RHS} }
func (i *BinaryInstr) Pure() bool          { return true }
func (i *BinaryInstr) ReplaceOperand(old, new *Value) {
	if i.LHS == old {
		i.LHS = new
	}
	if i.RHS == old {
		i.RHS = new
	}
}
func (i *BinaryInstr) String() string {
	return fmt.Sprintf("%s = %s %s %s, %s", i.Dst, i.Dst.Type, i.Op, i.LHS, i.RHS)
}

// CompareInstr: `%r = cmp <op> %lhs, %rhs` -- result type is always i32
// (0/1), per spec.md's i1-as-i32 treatment of condition values.
type CompareInstr struct {
	Dst      *Value
	Op       CmpOp
	LHS, RHS *Value
}

func (i *CompareInstr) Result() *Value     { return i.Dst }
func (i *CompareInstr) Operands() []*Value { return []*Value{i.LHS, i.RHS} }
func (i *CompareInstr) Pure() bool         { return true }
func (i *CompareInstr) ReplaceOperand(old, new *Value) {
	if i.LHS == old {
		i.LHS = new
	}
	if i.RHS == old {
		i.RHS = new
	}
}
func (i *CompareInstr) String() string {
	return fmt.Sprintf("%s = cmp %s %s, %s", i.Dst, i.Op, i.LHS, i.RHS)
}

// ConvertInstr: i32<->f32 conversion.
type ConvertInstr struct {
	Dst     *Value
	Src     *Value
	ToFloat bool // true: i32->f32, false: f32->i32
}

func (i *ConvertInstr) Result() *Value     { return i.Dst }
func (i *ConvertInstr) Operands() []*Value { return []*Value{i.Src} }
func (i *ConvertInstr) Pure() bool         { return true }
func (i *ConvertInstr) ReplaceOperand(old, new *Value) {
	if i.Src == old {
		i.Src = new
	}
}
func (i *ConvertInstr) String() string {
	if i.ToFloat {
		return fmt.Sprintf("%s = i2f %s", i.Dst, i.Src)
	}
	return fmt.Sprintf("%s = f2i %s", i.Dst, i.Src)
}

// JumpInstr: unconditional branch to a single successor.
type JumpInstr struct {
	Target *BasicBlock
}

func (i *JumpInstr) Result() *Value                { return nil }
func (i *JumpInstr) Operands() []*Value             { return nil }
func (i *JumpInstr) Pure() bool                     { return true }
func (i *JumpInstr) ReplaceOperand(old, new *Value) {}
func (i *JumpInstr) Successors() []*BasicBlock      { return []*BasicBlock{i.Target} }
func (i *JumpInstr) String() string                 { return fmt.Sprintf("jump %s", i.Target.Label) }

// CondJumpInstr: a 0/1 Cond value selects between two successors.
type CondJumpInstr struct {
	Cond             *Value
	True, False      *BasicBlock
}

func (i *CondJumpInstr) Result() *Value     { return nil }
func (i *CondJumpInstr) Operands() []*Value { return []*Value{i.Cond} }
func (i *CondJumpInstr) Pure() bool         { return true }
func (i *CondJumpInstr) ReplaceOperand(old, new *Value) {
	if i.Cond == old {
		i.Cond = new
	}
}
func (i *CondJumpInstr) Successors() []*BasicBlock {
	return []*BasicBlock{i.True, i.False}
}
func (i *CondJumpInstr) String() string {
	return fmt.Sprintf("br %s, %s, %s", i.Cond, i.True.Label, i.False.Label)
}

// PhiInstr maps incoming predecessor labels to values. Sources must be
// one-to-one with the owning block's predecessor list, in the same order.
type PhiInstr struct {
	Dst     *Value
	Block   *BasicBlock
	Sources []PhiSource
}

type PhiSource struct {
	Pred  *BasicBlock
	Value *Value
}

func (i *PhiInstr) Result() *Value { return i.Dst }
func (i *PhiInstr) Operands() []*Value {
	vals := make([]*Value, len(i.Sources))
	for n, s := range i.Sources {
		vals[n] = s.Value
	}
	return vals
}
func (i *PhiInstr) Pure() bool { return true }
func (i *PhiInstr) ReplaceOperand(old, new *Value) {
	for n := range i.Sources {
		if i.Sources[n].Value == old {
			i.Sources[n].Value = new
		}
	}
}
func (i *PhiInstr) ValueFor(pred *BasicBlock) *Value {
	for _, s := range i.Sources {
		if s.Pred == pred {
			return s.Value
		}
	}
	return nil
}
func (i *PhiInstr) String() string {
	var parts []string
	for _, s := range i.Sources {
		parts = append(parts, fmt.Sprintf("[%s, %s]", s.Value, s.Pred.Label))
	}
	return fmt.Sprintf("%s = phi %s %s", i.Dst, i.Dst.Type, strings.Join(parts, ", "))
}

// RetInstr: return from a function, optionally carrying a value.
type RetInstr struct {
	Value *Value // nil for void returns
}

func (i *RetInstr) Result() *Value { return nil }
func (i *RetInstr) Operands() []*Value {
	if i.Value == nil {
		return nil
	}
	return []*Value{i.Value}
}
func (i *RetInstr) Pure() bool { return true }
func (i *RetInstr) ReplaceOperand(old, new *Value) {
	if i.Value == old {
		i.Value = new
	}
}
func (i *RetInstr) Successors() []*BasicBlock { return nil }
func (i *RetInstr) String() string {
	if i.Value == nil {
		return "ret void"
	}
	return fmt.Sprintf("ret %s %s", i.Value.Type, i.Value)
}

// AllocaInstr: stack-allocates N elements of ElemType, yields a pointer.
type AllocaInstr struct {
	Dst       *Value
	ElemType  Type
	NumElems  int
}

func (i *AllocaInstr) Result() *Value     { return i.Dst }
func (i *AllocaInstr) Operands() []*Value { return nil }
func (i *AllocaInstr) Pure() bool         { return true }
func (i *AllocaInstr) ReplaceOperand(old, new *Value) {}
func (i *AllocaInstr) String() string {
	return fmt.Sprintf("%s = alloca %s, %d", i.Dst, i.ElemType, i.NumElems)
}

// StoreInstr: value -> address. Has a side effect, never removed by the
// "unused result" criterion.
type StoreInstr struct {
	Addr  *Value
	Value *Value
}

func (i *StoreInstr) Result() *Value     { return nil }
func (i *StoreInstr) Operands() []*Value { return []*Value{i.Addr, i.Value} }
func (i *StoreInstr) Pure() bool         { return false }
func (i *StoreInstr) ReplaceOperand(old, new *Value) {
	if i.Addr == old {
		i.Addr = new
	}
	if i.Value == old {
		i.Value = new
	}
}
func (i *StoreInstr) String() string {
	return fmt.Sprintf("store %s, %s", i.Value, i.Addr)
}

// LoadInstr: address -> value.
type LoadInstr struct {
	Dst  *Value
	Addr *Value
}

func (i *LoadInstr) Result() *Value     { return i.Dst }
func (i *LoadInstr) Operands() []*Value { return []*Value{i.Addr} }
func (i *LoadInstr) Pure() bool         { return true }
func (i *LoadInstr) ReplaceOperand(old, new *Value) {
	if i.Addr == old {
		i.Addr = new
	}
}
func (i *LoadInstr) String() string {
	return fmt.Sprintf("%s = load %s, %s", i.Dst, i.Dst.Type, i.Addr)
}

// GEPInstr: pointer + i32 element offset -> pointer of the same element
// type.
type GEPInstr struct {
	Dst    *Value
	Base   *Value
	Offset *Value
}

func (i *GEPInstr) Result() *Value     { return i.Dst }
func (i *GEPInstr) Operands() []*Value { return []*Value{i.Base, i.Offset} }
func (i *GEPInstr) Pure() bool         { return true }
func (i *GEPInstr) ReplaceOperand(old, new *Value) {
	if i.Base == old {
		i.Base = new
	}
	if i.Offset == old {
		i.Offset = new
	}
}
func (i *GEPInstr) String() string {
	return fmt.Sprintf("%s = gep %s, %s", i.Dst, i.Base, i.Offset)
}

// CallInstr: by-name call. Dst is nil for void calls.
type CallInstr struct {
	Dst      *Value // nil for void
	Callee   string
	Args     []*Value
	ArgTypes []Type
}

func (i *CallInstr) Result() *Value     { return i.Dst }
func (i *CallInstr) Operands() []*Value { return i.Args }
func (i *CallInstr) Pure() bool         { return false }
func (i *CallInstr) ReplaceOperand(old, new *Value) {
	for n, a := range i.Args {
		if a == old {
			i.Args[n] = new
		}
	}
}
func (i *CallInstr) String() string {
	var parts []string
	for n, a := range i.Args {
		parts = append(parts, fmt.Sprintf("%s %s", i.ArgTypes[n], a))
	}
	if i.Dst == nil {
		return fmt.Sprintf("call void @%s(%s)", i.Callee, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s = call %s @%s(%s)", i.Dst, i.Dst.Type, i.Callee, strings.Join(parts, ", "))
}

var (
	_ Terminator = (*JumpInstr)(nil)
	_ Terminator = (*CondJumpInstr)(nil)
	_ Terminator = (*RetInstr)(nil)
)
