package isel

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
	"github.com/rrvm-project/sysycc/internal/riscv"
)

// buildAddFunction builds `int add(int a, int b) { return a + b; }`.
func buildAddFunction() *ir.Program {
	prog := ir.NewProgram()
	a := prog.Temps.NewNamedTemp(ir.I32Type{}, "a")
	b := prog.Temps.NewNamedTemp(ir.I32Type{}, "b")
	f := ir.NewFunction("add", ir.I32Type{}, []*ir.Parameter{{Name: "a", Value: a}, {Name: "b", Value: b}})
	prog.Funcs = append(prog.Funcs, f)

	entry := f.NewBlock("entry")
	sum := prog.Temps.NewNamedTemp(ir.I32Type{}, "sum")
	entry.Instrs = append(entry.Instrs, &ir.BinaryInstr{Dst: sum, Op: ir.OpAdd, LHS: a, RHS: b})
	entry.Term = &ir.RetInstr{Value: sum}

	return prog
}

func TestSelectProgramLowersSimpleAdd(t *testing.T) {
	prog := buildAddFunction()
	rp := SelectProgram(prog)

	if len(rp.Funcs) != 1 {
		t.Fatalf("expected exactly 1 lowered function, got %d", len(rp.Funcs))
	}
	rf := rp.Funcs[0]
	if len(rf.Blocks) != 1 {
		t.Fatalf("expected exactly 1 block, got %d", len(rf.Blocks))
	}

	var sawAdd, sawRet bool
	for _, inst := range rf.Blocks[0].Instrs {
		switch v := inst.(type) {
		case *riscv.RTriInstr:
			if v.Op == riscv.Add {
				sawAdd = true
			}
		case *riscv.RetInstr:
			sawRet = true
		}
	}
	if !sawAdd {
		t.Fatal("expected a lowered add instruction")
	}
	if !sawRet {
		t.Fatal("expected a lowered ret instruction")
	}
}

func TestPhiResolutionInsertsMoveInPredecessor(t *testing.T) {
	prog := ir.NewProgram()
	n := prog.Temps.NewNamedTemp(ir.I32Type{}, "n")
	f := ir.NewFunction("pick", ir.I32Type{}, []*ir.Parameter{{Name: "n", Value: n}})
	prog.Funcs = append(prog.Funcs, f)

	entry := f.NewBlock("entry")
	then := f.NewBlock("then")
	els := f.NewBlock("else")
	join := f.NewBlock("join")

	cond := prog.Temps.NewNamedTemp(ir.I32Type{}, "cond")
	entry.Instrs = append(entry.Instrs, &ir.CompareInstr{Dst: cond, Op: ir.CmpSgt, LHS: n, RHS: ir.ConstI32(0)})
	entry.Term = &ir.CondJumpInstr{Cond: cond, True: then, False: els}
	entry.AddSucc(then)
	entry.AddSucc(els)

	then.Term = &ir.JumpInstr{Target: join}
	then.AddSucc(join)
	els.Term = &ir.JumpInstr{Target: join}
	els.AddSucc(join)

	result := prog.Temps.NewNamedTemp(ir.I32Type{}, "result")
	join.Phis = append(join.Phis, &ir.PhiInstr{
		Dst:   result,
		Block: join,
		Sources: []ir.PhiSource{
			{Pred: then, Value: ir.ConstI32(1)},
			{Pred: els, Value: ir.ConstI32(0)},
		},
	})
	join.Term = &ir.RetInstr{Value: result}

	rp := SelectProgram(prog)
	rf := rp.Funcs[0]

	var thenBlock, elseBlock *riscv.Block
	for _, b := range rf.Blocks {
		switch b.Label {
		case "then":
			thenBlock = b
		case "else":
			elseBlock = b
		}
	}
	if thenBlock == nil || elseBlock == nil {
		t.Fatal("expected then/else blocks to survive lowering")
	}

	hasMove := func(b *riscv.Block) bool {
		for _, inst := range b.Instrs {
			if mv, ok := inst.(*riscv.MvInstr); ok && mv.Rd.Kind == riscv.VTemp {
				return true
			}
		}
		return false
	}
	if !hasMove(thenBlock) || !hasMove(elseBlock) {
		t.Fatal("expected phi resolution to insert a move carrying the incoming value in each predecessor")
	}
}
