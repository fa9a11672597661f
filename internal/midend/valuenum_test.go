package midend

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/cfg"
	"github.com/rrvm-project/sysycc/internal/ir"
)

func TestLocalValueNumberingDedupsSameBlockExpr(t *testing.T) {
	f, b := straightLineFunc()
	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	x := prog.Temps.NewNamedTemp(ir.I32Type{}, "x")
	y := prog.Temps.NewNamedTemp(ir.I32Type{}, "y")
	b.Instrs = append(b.Instrs,
		&ir.BinaryInstr{Dst: x, Op: ir.OpAdd, LHS: ir.ConstI32(1), RHS: ir.ConstI32(2)},
		&ir.BinaryInstr{Dst: y, Op: ir.OpAdd, LHS: ir.ConstI32(1), RHS: ir.ConstI32(2)},
	)
	b.Term = &ir.RetInstr{Value: y}

	if !(LocalValueNumbering{}).Run(prog, f) {
		t.Fatal("expected the repeated expression to be numbered away")
	}
	if len(b.Instrs) != 1 {
		t.Fatalf("expected one surviving add, got %v", b.Instrs)
	}
	ret := b.Term.(*ir.RetInstr)
	if ret.Value != x {
		t.Fatalf("expected uses of y to be rewritten to x, got %v", ret.Value)
	}
}

func TestLocalValueNumberingCanonicalizesCommutativeOperandOrder(t *testing.T) {
	f, b := straightLineFunc()
	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	p := prog.Temps.NewNamedTemp(ir.I32Type{}, "p")
	q := prog.Temps.NewNamedTemp(ir.I32Type{}, "q")
	x := prog.Temps.NewNamedTemp(ir.I32Type{}, "x")
	y := prog.Temps.NewNamedTemp(ir.I32Type{}, "y")
	b.Instrs = append(b.Instrs,
		&ir.BinaryInstr{Dst: x, Op: ir.OpAdd, LHS: p, RHS: q},
		&ir.BinaryInstr{Dst: y, Op: ir.OpAdd, LHS: q, RHS: p},
	)
	b.Term = &ir.RetInstr{Value: y}

	if !(LocalValueNumbering{}).Run(prog, f) {
		t.Fatal("expected a+b and b+a to be numbered as the same expression")
	}
	if len(b.Instrs) != 1 {
		t.Fatalf("expected one surviving add, got %v", b.Instrs)
	}
	ret := b.Term.(*ir.RetInstr)
	if ret.Value != x {
		t.Fatalf("expected uses of y to be rewritten to x, got %v", ret.Value)
	}
}

func TestGlobalValueNumberingDominatedReuse(t *testing.T) {
	f, entry, _, _, join, _ := buildTestDiamond()
	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	a := prog.Temps.NewNamedTemp(ir.I32Type{}, "a")
	entry.Instrs = append(entry.Instrs, &ir.BinaryInstr{Dst: a, Op: ir.OpAdd, LHS: ir.ConstI32(3), RHS: ir.ConstI32(4)})

	b2 := prog.Temps.NewNamedTemp(ir.I32Type{}, "b2")
	join.Instrs = append(join.Instrs, &ir.BinaryInstr{Dst: b2, Op: ir.OpAdd, LHS: ir.ConstI32(3), RHS: ir.ConstI32(4)})
	join.Term = &ir.RetInstr{Value: b2}

	cfg.Analyze(f)
	if !(GlobalValueNumbering{}).Run(prog, f) {
		t.Fatal("expected join's recomputation of entry's expression to be numbered away")
	}
	if len(join.Instrs) != 0 {
		t.Fatalf("expected join's redundant add to be removed, got %v", join.Instrs)
	}
	ret := join.Term.(*ir.RetInstr)
	if ret.Value != a {
		t.Fatalf("expected join's return to reuse entry's value, got %v", ret.Value)
	}
}

func TestGlobalValueNumberingSiblingsStayIsolated(t *testing.T) {
	f, _, left, right, join, _ := buildTestDiamond()
	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	lv := prog.Temps.NewNamedTemp(ir.I32Type{}, "lv")
	left.Instrs = append(left.Instrs, &ir.BinaryInstr{Dst: lv, Op: ir.OpAdd, LHS: ir.ConstI32(5), RHS: ir.ConstI32(6)})
	rv := prog.Temps.NewNamedTemp(ir.I32Type{}, "rv")
	right.Instrs = append(right.Instrs, &ir.BinaryInstr{Dst: rv, Op: ir.OpAdd, LHS: ir.ConstI32(5), RHS: ir.ConstI32(6)})
	join.Term = &ir.RetInstr{Value: ir.ConstI32(0)}

	cfg.Analyze(f)
	if (GlobalValueNumbering{}).Run(prog, f) {
		t.Fatal("left and right are siblings in the dominator tree; neither dominates the other")
	}
	if len(left.Instrs) != 1 || len(right.Instrs) != 1 {
		t.Fatalf("expected both sibling computations to survive independently, got %v / %v", left.Instrs, right.Instrs)
	}
}
