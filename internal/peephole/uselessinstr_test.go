package peephole

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

func TestUselessInstrDropsDeadDefinition(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	dead := rf.NewVReg(false)
	live := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.LiInstr{Rd: dead, Imm: 1},
		&riscv.LiInstr{Rd: live, Imm: 2},
		&riscv.CallInstr{Symbol: "sink", Args: []riscv.Value{live}},
		&riscv.RetInstr{},
	)

	UselessInstr(rf)

	for _, inst := range b.Instrs {
		if li, ok := inst.(*riscv.LiInstr); ok && li.Imm == 1 {
			t.Fatalf("dead definition should have been removed, found %v", inst)
		}
	}
	if len(b.Instrs) != 3 {
		t.Fatalf("expected 3 surviving instructions, got %d: %v", len(b.Instrs), b.Instrs)
	}
}

func TestUselessInstrKeepsSideEffects(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	dst := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.CallInstr{Symbol: "impure", Dst: &dst},
		&riscv.RetInstr{},
	)

	UselessInstr(rf)

	if len(b.Instrs) != 2 {
		t.Fatalf("a call must survive even with a dead destination, got %v", b.Instrs)
	}
}

func TestUselessInstrFixedPointChainsThroughTwoDeadDefs(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	a := rf.NewVReg(false)
	c := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.LiInstr{Rd: a, Imm: 1},
		&riscv.RTriInstr{Op: riscv.Add, Rd: c, Rs1: a, Rs2: a},
		&riscv.RetInstr{},
	)

	UselessInstr(rf)

	if len(b.Instrs) != 1 {
		t.Fatalf("both the dead add and the li that only feeds it should be gone, got %v", b.Instrs)
	}
}
