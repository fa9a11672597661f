package ir

import "testing"

func TestAddSuccRemovePredSucc(t *testing.T) {
	a := NewBlock(0, "a")
	b := NewBlock(1, "b")
	a.AddSucc(b)

	if len(a.Succs) != 1 || a.Succs[0] != b {
		t.Fatal("AddSucc did not link a->b")
	}
	if len(b.Preds) != 1 || b.Preds[0] != a {
		t.Fatal("AddSucc did not link b.Preds<-a")
	}

	a.RemoveSucc(b)
	if len(a.Succs) != 0 {
		t.Error("RemoveSucc did not clear a.Succs")
	}
	b.RemovePred(a)
	if len(b.Preds) != 0 {
		t.Error("RemovePred did not clear b.Preds")
	}
}

func TestDetach(t *testing.T) {
	a := NewBlock(0, "a")
	b := NewBlock(1, "b")
	c := NewBlock(2, "c")
	a.AddSucc(b)
	b.AddSucc(c)

	b.Detach()
	if len(a.Succs) != 0 {
		t.Error("Detach should remove b from a's successors")
	}
	if len(c.Preds) != 0 {
		t.Error("Detach should remove b from c's predecessors")
	}
	if len(b.Preds) != 0 || len(b.Succs) != 0 {
		t.Error("Detach should clear b's own edge lists")
	}
}

func TestReplaceSucc(t *testing.T) {
	a := NewBlock(0, "a")
	oldB := NewBlock(1, "old")
	newB := NewBlock(2, "new")
	a.AddSucc(oldB)
	a.Term = &JumpInstr{Target: oldB}

	a.ReplaceSucc(oldB, newB)

	if a.Succs[0] != newB {
		t.Error("ReplaceSucc should update a.Succs")
	}
	if len(oldB.Preds) != 0 {
		t.Error("ReplaceSucc should remove a from old target's preds")
	}
	if len(newB.Preds) != 1 || newB.Preds[0] != a {
		t.Error("ReplaceSucc should add a to new target's preds")
	}
	jump, ok := a.Term.(*JumpInstr)
	if !ok || jump.Target != newB {
		t.Error("ReplaceSucc should rewrite the JumpInstr target")
	}
}

func TestReplaceSuccCondJump(t *testing.T) {
	a := NewBlock(0, "a")
	oldB := NewBlock(1, "old")
	other := NewBlock(2, "other")
	newB := NewBlock(3, "new")
	a.AddSucc(oldB)
	a.AddSucc(other)
	a.Term = &CondJumpInstr{Cond: ConstI32(1), True: oldB, False: other}

	a.ReplaceSucc(oldB, newB)

	cj := a.Term.(*CondJumpInstr)
	if cj.True != newB {
		t.Error("ReplaceSucc should rewrite CondJumpInstr.True")
	}
	if cj.False != other {
		t.Error("ReplaceSucc should leave CondJumpInstr.False untouched")
	}
}

func TestAllInstrsOrder(t *testing.T) {
	b := NewBlock(0, "b")
	phi := &PhiInstr{Dst: &Value{Kind: ValueTemp, Type: I32Type{}}, Block: b}
	b.Phis = append(b.Phis, phi)
	bin := &BinaryInstr{Dst: &Value{Kind: ValueTemp, Type: I32Type{}}, Op: OpAdd, LHS: ConstI32(1), RHS: ConstI32(2)}
	b.Instrs = append(b.Instrs, bin)
	b.Term = &RetInstr{}

	all := b.AllInstrs()
	if len(all) != 3 || all[0] != Instruction(phi) || all[1] != Instruction(bin) || all[2] != Instruction(b.Term) {
		t.Errorf("unexpected AllInstrs order: %v", all)
	}
}

func TestLoopHasInner(t *testing.T) {
	outer := &Loop{}
	if outer.HasInner() {
		t.Error("fresh loop should have no inner loops")
	}
	outer.Inner = append(outer.Inner, &Loop{})
	if !outer.HasInner() {
		t.Error("loop with an Inner entry should report HasInner")
	}
}
