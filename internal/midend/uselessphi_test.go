package midend

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
)

func TestUselessPhiCollapsesAgreeingSources(t *testing.T) {
	f, entry, left, right, join, _ := buildTestDiamond()
	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	phi := &ir.PhiInstr{Dst: prog.Temps.NewTemp(ir.I32Type{}), Block: join, Sources: []ir.PhiSource{
		{Pred: left, Value: ir.ConstI32(7)},
		{Pred: right, Value: ir.ConstI32(7)},
	}}
	join.Phis = append(join.Phis, phi)
	join.Term = &ir.RetInstr{Value: phi.Dst}
	_ = entry

	if !(UselessPhi{}).Run(prog, f) {
		t.Fatal("expected the agreeing phi to collapse")
	}
	if len(join.Phis) != 0 {
		t.Fatalf("expected the phi to be removed, got %v", join.Phis)
	}
	ret := join.Term.(*ir.RetInstr)
	if ret.Value.Kind != ir.ValueConstInt || ret.Value.ConstInt != 7 {
		t.Fatalf("expected uses rewritten to the agreeing constant, got %v", ret.Value)
	}
}

func TestUselessPhiKeepsDisagreeingSources(t *testing.T) {
	f, _, left, right, join, _ := buildTestDiamond()
	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	phi := &ir.PhiInstr{Dst: prog.Temps.NewTemp(ir.I32Type{}), Block: join, Sources: []ir.PhiSource{
		{Pred: left, Value: ir.ConstI32(1)},
		{Pred: right, Value: ir.ConstI32(2)},
	}}
	join.Phis = append(join.Phis, phi)
	join.Term = &ir.RetInstr{Value: phi.Dst}

	if (UselessPhi{}).Run(prog, f) {
		t.Fatal("a phi whose sources disagree must not be collapsed")
	}
	if len(join.Phis) != 1 {
		t.Fatalf("expected the phi to survive, got %v", join.Phis)
	}
}

// buildTestDiamond constructs entry -> {left,right} -> join -> exit,
// local to this package (internal/cfg's buildDiamond is unexported there).
func buildTestDiamond() (*ir.Function, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock) {
	f := ir.NewFunction("f", ir.I32Type{}, nil)
	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	right := f.NewBlock("right")
	join := f.NewBlock("join")
	exit := f.NewBlock("exit")

	entry.Term = &ir.CondJumpInstr{Cond: ir.ConstI32(1), True: left, False: right}
	entry.AddSucc(left)
	entry.AddSucc(right)
	left.Term = &ir.JumpInstr{Target: join}
	left.AddSucc(join)
	right.Term = &ir.JumpInstr{Target: join}
	right.AddSucc(join)
	join.Term = &ir.JumpInstr{Target: exit}
	join.AddSucc(exit)
	exit.Term = &ir.RetInstr{Value: ir.ConstI32(0)}

	return f, entry, left, right, join, exit
}
