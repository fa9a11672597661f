package cfg

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
)

// TestLivenessStraightLine: entry defines t1, uses it in a later block;
// t1 should be live-in to the using block and live-out of entry.
func TestLivenessStraightLine(t *testing.T) {
	f := ir.NewFunction("f", ir.I32Type{}, nil)
	entry := f.NewBlock("entry")
	use := f.NewBlock("use")

	t1 := &ir.Value{Kind: ir.ValueTemp, ID: 1, Type: ir.I32Type{}}
	entry.Instrs = append(entry.Instrs, &ir.BinaryInstr{Dst: t1, Op: ir.OpAdd, LHS: ir.ConstI32(1), RHS: ir.ConstI32(2)})
	entry.Term = &ir.JumpInstr{Target: use}
	entry.AddSucc(use)

	use.Term = &ir.RetInstr{Value: t1}

	Dominators(f)
	NaturalLoops(f)
	Liveness(f)

	if !entry.LiveOut[t1] {
		t.Error("t1 should be live-out of entry")
	}
	if !use.LiveIn[t1] {
		t.Error("t1 should be live-in to use")
	}
	if use.LiveOut[t1] {
		t.Error("t1 should not be live-out of use (consumed by ret)")
	}
}

func TestLivenessLoopWeight(t *testing.T) {
	f, _, header, body, exit := buildSimpleLoop()
	Dominators(f)
	NaturalLoops(f)
	Liveness(f)

	if header.Weight <= 1 {
		t.Errorf("loop header weight should exceed 1, got %v", header.Weight)
	}
	if body.Weight != header.Weight {
		t.Errorf("header and body share the same loop depth, expected equal weight: %v vs %v", header.Weight, body.Weight)
	}
	if exit.Weight != 1 {
		t.Errorf("blocks outside any loop should keep weight 1, got %v", exit.Weight)
	}
}

func TestPhiUsesIn(t *testing.T) {
	pred := ir.NewBlock(0, "pred")
	succ := ir.NewBlock(1, "succ")
	pred.AddSucc(succ)

	val := ir.ConstI32(0)
	phiDst := &ir.Value{Kind: ir.ValueTemp, ID: 1, Type: ir.I32Type{}}
	t1 := &ir.Value{Kind: ir.ValueTemp, ID: 2, Type: ir.I32Type{}}
	phi := &ir.PhiInstr{Dst: phiDst, Block: succ, Sources: []ir.PhiSource{{Pred: pred, Value: t1}}}
	succ.Phis = append(succ.Phis, phi)

	uses := PhiUsesIn(pred)
	if len(uses) != 1 || uses[0] != t1 {
		t.Errorf("expected PhiUsesIn to report t1, got %v", uses)
	}
	_ = val
}
