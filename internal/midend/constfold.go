package midend

import (
	"math"

	"github.com/rrvm-project/sysycc/internal/ir"
)

// ConstantFold evaluates BinaryInstr/CompareInstr/ConvertInstr whose
// operands are both constant, replacing the instruction's uses with the
// literal result. Integer arithmetic wraps on overflow (two's complement,
// matching Go's int32 semantics); float arithmetic uses IEEE-754 binary32
// rules including NaN/Inf propagation, matching `fuyuki_vn/calc.rs`'s
// evaluation semantics for the same opcode set.
type ConstantFold struct{}

func (ConstantFold) Name() string { return "constant-folding" }

func (ConstantFold) Run(prog *ir.Program, f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		out := b.Instrs[:0]
		for _, inst := range b.Instrs {
			if folded, ok := tryFold(inst); ok {
				replaceAllUses(f, inst.Result(), folded)
				changed = true
				continue
			}
			out = append(out, inst)
		}
		b.Instrs = out
		if cj, ok := b.Term.(*ir.CondJumpInstr); ok && cj.Cond.IsConst() {
			// Branch-on-constant is left for UnreachableCode to simplify;
			// ConstantFold only folds pure value computations.
			_ = cj
		}
	}
	return changed
}

func tryFold(inst ir.Instruction) (*ir.Value, bool) {
	switch i := inst.(type) {
	case *ir.BinaryInstr:
		if !i.LHS.IsConst() || !i.RHS.IsConst() {
			return nil, false
		}
		return foldBinary(i.Op, i.LHS, i.RHS)
	case *ir.CompareInstr:
		if !i.LHS.IsConst() || !i.RHS.IsConst() {
			return nil, false
		}
		return foldCompare(i.Op, i.LHS, i.RHS)
	case *ir.ConvertInstr:
		if !i.Src.IsConst() {
			return nil, false
		}
		return foldConvert(i)
	}
	return nil, false
}

func foldBinary(op ir.ArithOp, lhs, rhs *ir.Value) (*ir.Value, bool) {
	if op.IsFloat() {
		a, b := lhs.ConstFloat, rhs.ConstFloat
		switch op {
		case ir.OpFAdd:
			return ir.ConstF32(a + b), true
		case ir.OpFSub:
			return ir.ConstF32(a - b), true
		case ir.OpFMul:
			return ir.ConstF32(a * b), true
		case ir.OpFDiv:
			return ir.ConstF32(a / b), true
		}
		return nil, false
	}
	a, b := lhs.ConstInt, rhs.ConstInt
	switch op {
	case ir.OpAdd:
		return ir.ConstI32(a + b), true
	case ir.OpSub:
		return ir.ConstI32(a - b), true
	case ir.OpMul:
		return ir.ConstI32(a * b), true
	case ir.OpDiv:
		if b == 0 {
			return nil, false // preserve the runtime trap, don't fold div-by-zero
		}
		if a == math.MinInt32 && b == -1 {
			return ir.ConstI32(math.MinInt32), true // wraps, per two's complement
		}
		return ir.ConstI32(a / b), true
	case ir.OpRem:
		if b == 0 {
			return nil, false
		}
		return ir.ConstI32(a % b), true
	}
	return nil, false
}

func foldCompare(op ir.CmpOp, lhs, rhs *ir.Value) (*ir.Value, bool) {
	truth := func(cond bool) *ir.Value {
		if cond {
			return ir.ConstI32(1)
		}
		return ir.ConstI32(0)
	}
	if op.IsFloat() {
		a, b := lhs.ConstFloat, rhs.ConstFloat
		switch op {
		case ir.CmpFEq:
			return truth(a == b), true
		case ir.CmpFNe:
			return truth(a != b), true
		case ir.CmpFLt:
			return truth(a < b), true
		case ir.CmpFLe:
			return truth(a <= b), true
		case ir.CmpFGt:
			return truth(a > b), true
		case ir.CmpFGe:
			return truth(a >= b), true
		}
		return nil, false
	}
	a, b := lhs.ConstInt, rhs.ConstInt
	switch op {
	case ir.CmpEq:
		return truth(a == b), true
	case ir.CmpNe:
		return truth(a != b), true
	case ir.CmpSlt:
		return truth(a < b), true
	case ir.CmpSle:
		return truth(a <= b), true
	case ir.CmpSgt:
		return truth(a > b), true
	case ir.CmpSge:
		return truth(a >= b), true
	}
	return nil, false
}

func foldConvert(i *ir.ConvertInstr) (*ir.Value, bool) {
	if i.ToFloat {
		return ir.ConstF32(float32(i.Src.ConstInt)), true
	}
	return ir.ConstI32(int32(i.Src.ConstFloat)), true
}

// replaceAllUses rewrites every operand reference to old into new across
// the whole function -- a constant's "uses" can span blocks since SSA
// values are function-global.
func replaceAllUses(f *ir.Function, old, new *ir.Value) {
	for _, b := range f.Blocks {
		for _, phi := range b.Phis {
			phi.ReplaceOperand(old, new)
		}
		for _, inst := range b.Instrs {
			inst.ReplaceOperand(old, new)
		}
		if b.Term != nil {
			b.Term.ReplaceOperand(old, new)
		}
	}
}
