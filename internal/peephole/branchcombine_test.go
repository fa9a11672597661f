package peephole

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

func TestBranchCombineFusesSlt(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	target := rf.NewBlock("then")
	a := rf.NewVReg(false)
	bb := rf.NewVReg(false)
	cond := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.RTriInstr{Op: riscv.Slt, Rd: cond, Rs1: a, Rs2: bb},
		&riscv.BranInstr{Op: riscv.Bne, Rs1: cond, Rs2: riscv.NewPhysical(riscv.X0), Target: target},
	)

	BranchCombine(rf)

	if len(b.Instrs) != 1 {
		t.Fatalf("expected the slt+bnez pair fused into one branch, got %v", b.Instrs)
	}
	bran, ok := b.Instrs[0].(*riscv.BranInstr)
	if !ok || bran.Op != riscv.Blt {
		t.Fatalf("expected a fused blt, got %v", b.Instrs[0])
	}
}

func TestBranchCombineFusesXorSltiuEquality(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	target := rf.NewBlock("then")
	a := rf.NewVReg(false)
	bb := rf.NewVReg(false)
	xorTmp := rf.NewVReg(false)
	cond := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.RTriInstr{Op: riscv.Xor, Rd: xorTmp, Rs1: a, Rs2: bb},
		&riscv.ITriInstr{Op: riscv.Sltiu, Rd: cond, Rs1: xorTmp, Imm: riscv.NewImm(1)},
		&riscv.BranInstr{Op: riscv.Bne, Rs1: cond, Rs2: riscv.NewPhysical(riscv.X0), Target: target},
	)

	BranchCombine(rf)

	if len(b.Instrs) != 1 {
		t.Fatalf("expected the xor+sltiu+bnez triple fused into one branch, got %v", b.Instrs)
	}
	bran, ok := b.Instrs[0].(*riscv.BranInstr)
	if !ok || bran.Op != riscv.Beq {
		t.Fatalf("expected a fused beq, got %v", b.Instrs[0])
	}
}

// TestBranchCombineFusesXorSltiuEqualityWithSharedDst covers the shape
// internal/isel/select.go's lowerCompare actually emits for CmpEq: a
// single dst vreg reused as both the xor's Rd and the sltiu's Rs1/Rd,
// rather than two distinct temporaries.
func TestBranchCombineFusesXorSltiuEqualityWithSharedDst(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	target := rf.NewBlock("then")
	a := rf.NewVReg(false)
	bb := rf.NewVReg(false)
	dst := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.RTriInstr{Op: riscv.Xor, Rd: dst, Rs1: a, Rs2: bb},
		&riscv.ITriInstr{Op: riscv.Sltiu, Rd: dst, Rs1: dst, Imm: riscv.NewImm(1)},
		&riscv.BranInstr{Op: riscv.Bne, Rs1: dst, Rs2: riscv.NewPhysical(riscv.X0), Target: target},
	)

	BranchCombine(rf)

	if len(b.Instrs) != 1 {
		t.Fatalf("expected the xor+sltiu+bnez triple fused into one branch even with a shared dst, got %v", b.Instrs)
	}
	bran, ok := b.Instrs[0].(*riscv.BranInstr)
	if !ok || bran.Op != riscv.Beq {
		t.Fatalf("expected a fused beq, got %v", b.Instrs[0])
	}
}

func TestBranchCombineSkipsWhenCondHasOtherUses(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	target := rf.NewBlock("then")
	a := rf.NewVReg(false)
	bb := rf.NewVReg(false)
	cond := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.RTriInstr{Op: riscv.Slt, Rd: cond, Rs1: a, Rs2: bb},
		&riscv.CallInstr{Symbol: "sink", Args: []riscv.Value{cond}},
		&riscv.BranInstr{Op: riscv.Bne, Rs1: cond, Rs2: riscv.NewPhysical(riscv.X0), Target: target},
	)

	BranchCombine(rf)

	if len(b.Instrs) != 3 {
		t.Fatalf("cond is read by the call too, the pair must not be fused: %v", b.Instrs)
	}
}
