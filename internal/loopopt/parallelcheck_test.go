package loopopt

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
)

func TestCheckParallelizableAcceptsIVIndexedStore(t *testing.T) {
	lf := buildLoopFixture()
	ClassifyInductionVariables(lf.f)

	arr := lf.prog.Temps.NewGlobalTemp(ir.PointerType{Elem: ir.I32Type{}}, "arr")
	lf.prog.AddGlobal(&ir.GlobalVar{Name: "arr", Elem: ir.I32Type{}, Len: 16, Init: []ir.InitItem{{IsZero: true, Zero: 64}}})
	addr := lf.prog.Temps.NewNamedTemp(ir.PointerType{Elem: ir.I32Type{}}, "addr")
	lf.body.Instrs = append(lf.body.Instrs, &ir.GEPInstr{Dst: addr, Base: arr, Offset: lf.i})
	lf.body.Instrs = append(lf.body.Instrs, &ir.StoreInstr{Addr: addr, Value: lf.i})

	report := CheckParallelizable(findLoop(lf.f, lf.header))
	if !report.Parallelizable {
		t.Fatalf("expected a loop storing arr[i] = i to be parallelizable, got reason: %s", report.Reason)
	}
}

func TestCheckParallelizableRejectsCall(t *testing.T) {
	lf := buildLoopFixture()
	ClassifyInductionVariables(lf.f)

	lf.body.Instrs = append(lf.body.Instrs, &ir.CallInstr{Callee: "sideEffect", Args: nil})

	report := CheckParallelizable(findLoop(lf.f, lf.header))
	if report.Parallelizable {
		t.Fatal("a loop body containing a call must never be reported parallelizable")
	}
}

func TestCheckParallelizableRejectsNonIVAddress(t *testing.T) {
	lf := buildLoopFixture()
	ClassifyInductionVariables(lf.f)

	arr := lf.prog.Temps.NewGlobalTemp(ir.PointerType{Elem: ir.I32Type{}}, "arr")
	lf.prog.AddGlobal(&ir.GlobalVar{Name: "arr", Elem: ir.I32Type{}, Len: 16, Init: []ir.InitItem{{IsZero: true, Zero: 64}}})
	other := lf.prog.Temps.NewNamedTemp(ir.I32Type{}, "other")
	lf.body.Instrs = append(lf.body.Instrs, &ir.BinaryInstr{Dst: other, Op: ir.OpMul, LHS: lf.n, RHS: lf.n})
	addr := lf.prog.Temps.NewNamedTemp(ir.PointerType{Elem: ir.I32Type{}}, "addr")
	lf.body.Instrs = append(lf.body.Instrs, &ir.GEPInstr{Dst: addr, Base: arr, Offset: other})
	lf.body.Instrs = append(lf.body.Instrs, &ir.StoreInstr{Addr: addr, Value: lf.i})

	// other is loop-invariant (n*n), not the loop's own IV, so every
	// iteration would write the same element -- must be rejected.
	report := CheckParallelizable(findLoop(lf.f, lf.header))
	if report.Parallelizable {
		t.Fatal("a store addressed by a loop-invariant value aliases across every iteration")
	}
}
