package midend

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
)

// buildCalleeAndCaller builds:
//
//	int addOne(int x) { return x + 1; }
//	int caller() { r = call addOne(41); return r; }
func buildCalleeAndCaller() (*ir.Program, *ir.Function, *ir.Function) {
	prog := ir.NewProgram()

	callee := ir.NewFunction("addOne", ir.I32Type{}, nil)
	px := prog.Temps.NewNamedTemp(ir.I32Type{}, "x")
	callee.Params = []*ir.Parameter{{Name: "x", Value: px}}
	cb := callee.NewBlock("entry")
	r := prog.Temps.NewTemp(ir.I32Type{})
	cb.Instrs = append(cb.Instrs, &ir.BinaryInstr{Dst: r, Op: ir.OpAdd, LHS: px, RHS: ir.ConstI32(1)})
	cb.Term = &ir.RetInstr{Value: r}
	prog.Funcs = append(prog.Funcs, callee)

	caller := ir.NewFunction("caller", ir.I32Type{}, nil)
	cbEntry := caller.NewBlock("entry")
	dst := prog.Temps.NewTemp(ir.I32Type{})
	cbEntry.Instrs = append(cbEntry.Instrs, &ir.CallInstr{Dst: dst, Callee: "addOne", Args: []*ir.Value{ir.ConstI32(41)}, ArgTypes: []ir.Type{ir.I32Type{}}})
	cbEntry.Term = &ir.RetInstr{Value: dst}
	prog.Funcs = append(prog.Funcs, caller)

	return prog, callee, caller
}

func TestInlineSplicesCalleeBody(t *testing.T) {
	prog, _, caller := buildCalleeAndCaller()

	if !(Inline{}).Run(prog, caller) {
		t.Fatal("expected the small, non-recursive callee to be inlined")
	}

	for _, b := range caller.Blocks {
		for _, inst := range b.Instrs {
			if call, ok := inst.(*ir.CallInstr); ok {
				t.Fatalf("expected no call instructions to remain after inlining, found %v", call)
			}
		}
	}
	if len(caller.Blocks) < 2 {
		t.Fatalf("expected the callee's blocks to be spliced in, got %d blocks", len(caller.Blocks))
	}

	var foundAdd bool
	for _, b := range caller.Blocks {
		for _, inst := range b.Instrs {
			if bin, ok := inst.(*ir.BinaryInstr); ok && bin.Op == ir.OpAdd {
				foundAdd = true
				if !bin.RHS.IsConst() || bin.RHS.ConstInt != 1 {
					t.Fatalf("expected the cloned add's rhs to stay the literal 1, got %v", bin.RHS)
				}
			}
		}
	}
	if !foundAdd {
		t.Fatal("expected the callee's add instruction to be present in the caller after inlining")
	}
}

func TestInlineRespectsParamThreshold(t *testing.T) {
	prog, callee, caller := buildCalleeAndCaller()
	for i := 0; i < InlineParamsThreshold+1; i++ {
		callee.Params = append(callee.Params, &ir.Parameter{Name: "extra", Value: prog.Temps.NewTemp(ir.I32Type{})})
	}

	if (Inline{}).Run(prog, caller) {
		t.Fatal("a callee over the parameter threshold should never be inlined")
	}
}
