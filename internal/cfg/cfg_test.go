package cfg

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
)

func TestAnalyzeRunsAllThree(t *testing.T) {
	f, _, header, _, _ := buildSimpleLoop()
	Analyze(f)

	if header.IDom == nil {
		t.Error("Analyze should populate dominators")
	}
	if header.Loop == nil {
		t.Error("Analyze should populate the loop tree")
	}
	if header.LiveIn == nil {
		t.Error("Analyze should populate liveness")
	}
}

// buildLoopWithTwoEntries gives the header two predecessors outside the
// loop, so no existing block already qualifies as a preheader and
// SynthesizePreheader must create one.
func buildLoopWithTwoEntries() (f *ir.Function, e1, e2, header, body *ir.BasicBlock) {
	f = ir.NewFunction("f", ir.I32Type{}, nil)
	e1 = f.NewBlock("e1")
	e2 = f.NewBlock("e2")
	header = f.NewBlock("header")
	body = f.NewBlock("body")
	exit := f.NewBlock("exit")

	e1.Term = &ir.JumpInstr{Target: header}
	e1.AddSucc(header)
	e2.Term = &ir.JumpInstr{Target: header}
	e2.AddSucc(header)

	iv := &ir.Value{Kind: ir.ValueTemp, ID: 1, Type: ir.I32Type{}}
	fromE1 := ir.ConstI32(0)
	fromE2 := ir.ConstI32(1)
	fromBody := &ir.Value{Kind: ir.ValueTemp, ID: 2, Type: ir.I32Type{}}
	phi := &ir.PhiInstr{Dst: iv, Block: header, Sources: []ir.PhiSource{
		{Pred: e1, Value: fromE1},
		{Pred: e2, Value: fromE2},
		{Pred: body, Value: fromBody},
	}}
	header.Phis = append(header.Phis, phi)

	header.Term = &ir.CondJumpInstr{Cond: ir.ConstI32(1), True: body, False: exit}
	header.AddSucc(body)
	header.AddSucc(exit)

	body.Term = &ir.JumpInstr{Target: header}
	body.AddSucc(header)

	exit.Term = &ir.RetInstr{Value: ir.ConstI32(0)}
	return
}

func TestSynthesizePreheaderMergesMultipleEntries(t *testing.T) {
	f, e1, e2, header, body := buildLoopWithTwoEntries()
	Dominators(f)
	loops := NaturalLoops(f)
	if len(loops) != 1 {
		t.Fatalf("expected one loop, got %d", len(loops))
	}
	l := loops[0]
	if l.Preheader != nil {
		t.Fatalf("expected no preheader yet (two entry edges), got %v", l.Preheader)
	}

	pre := SynthesizePreheader(f, l)
	if pre == nil {
		t.Fatal("expected a synthesized preheader")
	}
	if len(header.Preds) != 2 {
		t.Fatalf("expected header to now have exactly 2 preds (body, preheader), got %d", len(header.Preds))
	}

	j1, ok := e1.Term.(*ir.JumpInstr)
	if !ok || j1.Target != pre {
		t.Error("e1 should now jump to the preheader")
	}
	j2, ok := e2.Term.(*ir.JumpInstr)
	if !ok || j2.Target != pre {
		t.Error("e2 should now jump to the preheader")
	}

	phi := header.Phis[0]
	if phi.ValueFor(e1) != nil || phi.ValueFor(e2) != nil {
		t.Error("e1/e2 should no longer feed the header phi directly")
	}
	if phi.ValueFor(pre) == nil {
		t.Error("the preheader should now feed the header phi")
	}
	if phi.ValueFor(body) == nil {
		t.Error("body's contribution to the phi should be untouched")
	}

	idempotent := SynthesizePreheader(f, l)
	if idempotent != pre {
		t.Error("SynthesizePreheader should be idempotent once a preheader exists")
	}
}
