package ir

import "testing"

func TestBinaryInstr(t *testing.T) {
	lhs, rhs := ConstI32(1), ConstI32(2)
	dst := &Value{Kind: ValueTemp, ID: 1, Name: "%t1", Type: I32Type{}}
	inst := &BinaryInstr{Dst: dst, Op: OpAdd, LHS: lhs, RHS: rhs}

	if inst.Result() != dst {
		t.Error("Result should be Dst")
	}
	if !inst.Pure() {
		t.Error("BinaryInstr should be pure")
	}
	ops := inst.Operands()
	if len(ops) != 2 || ops[0] != lhs || ops[1] != rhs {
		t.Errorf("unexpected operands: %v", ops)
	}

	replacement := ConstI32(5)
	inst.ReplaceOperand(lhs, replacement)
	if inst.LHS != replacement {
		t.Error("ReplaceOperand did not rewrite LHS")
	}
	if inst.String() == "" {
		t.Error("String() should not be empty")
	}
}

func TestCompareInstrFloatness(t *testing.T) {
	if CmpSlt.IsFloat() {
		t.Error("CmpSlt is an integer comparison")
	}
	if !CmpFLt.IsFloat() {
		t.Error("CmpFLt is a float comparison")
	}
}

func TestArithOpFloatness(t *testing.T) {
	if OpAdd.IsFloat() {
		t.Error("OpAdd is integer")
	}
	if !OpFAdd.IsFloat() {
		t.Error("OpFAdd is float")
	}
}

func TestPhiInstrValueFor(t *testing.T) {
	b1 := NewBlock(1, "b1")
	b2 := NewBlock(2, "b2")
	dst := &Value{Kind: ValueTemp, ID: 1, Name: "%t1", Type: I32Type{}}
	v1, v2 := ConstI32(1), ConstI32(2)
	phi := &PhiInstr{
		Dst:   dst,
		Block: b2,
		Sources: []PhiSource{
			{Pred: b1, Value: v1},
			{Pred: b2, Value: v2},
		},
	}
	if phi.ValueFor(b1) != v1 {
		t.Error("ValueFor(b1) mismatch")
	}
	if phi.ValueFor(b2) != v2 {
		t.Error("ValueFor(b2) mismatch")
	}
	if phi.ValueFor(NewBlock(3, "b3")) != nil {
		t.Error("ValueFor of unknown predecessor should be nil")
	}

	phi.ReplaceOperand(v1, ConstI32(99))
	if phi.Sources[0].Value.ConstInt != 99 {
		t.Error("ReplaceOperand should rewrite matching phi source")
	}
}

func TestTerminatorSuccessors(t *testing.T) {
	target := NewBlock(1, "target")
	j := &JumpInstr{Target: target}
	succs := j.Successors()
	if len(succs) != 1 || succs[0] != target {
		t.Errorf("unexpected jump successors: %v", succs)
	}

	trueB, falseB := NewBlock(2, "t"), NewBlock(3, "f")
	cond := ConstI32(1)
	cj := &CondJumpInstr{Cond: cond, True: trueB, False: falseB}
	succs = cj.Successors()
	if len(succs) != 2 || succs[0] != trueB || succs[1] != falseB {
		t.Errorf("unexpected condjump successors: %v", succs)
	}

	ret := &RetInstr{Value: ConstI32(0)}
	if ret.Successors() != nil {
		t.Error("ret should have no successors")
	}
}

func TestCallInstrPurity(t *testing.T) {
	call := &CallInstr{Callee: "getint"}
	if call.Pure() {
		t.Error("CallInstr should never be pure")
	}
	store := &StoreInstr{Addr: ConstI32(0), Value: ConstI32(1)}
	if store.Pure() {
		t.Error("StoreInstr should never be pure")
	}
	load := &LoadInstr{Dst: &Value{Kind: ValueTemp, Type: I32Type{}}, Addr: ConstI32(0)}
	if !load.Pure() {
		t.Error("LoadInstr should be pure")
	}
}
