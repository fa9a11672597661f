package regalloc

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

func TestSpillRematerializesConstant(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	v := rf.NewVReg(false)
	other := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.LiInstr{Rd: v, Imm: 42},
		&riscv.RTriInstr{Op: riscv.Add, Rd: other, Rs1: v, Rs2: v},
		&riscv.RetInstr{},
	)

	sp := newSpiller(rf)
	sp.spill(map[int]bool{v.VReg: true}, false)

	var liCount int
	for _, inst := range b.Instrs {
		if li, ok := inst.(*riscv.LiInstr); ok && li.Imm == 42 {
			liCount++
		}
		if _, ok := inst.(*riscv.MemInstr); ok {
			t.Fatalf("a rematerializable constant should never spill to memory, got %v", inst)
		}
	}
	if liCount != 1 {
		t.Fatalf("expected one shared re-materialization for both operand occurrences, got %d li instructions", liCount)
	}
}

func TestSpillNonConstantUsesStackSlot(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	base := rf.NewVReg(false)
	v := rf.NewVReg(false)
	sink := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.LiInstr{Rd: base, Imm: 1},
		&riscv.RTriInstr{Op: riscv.Add, Rd: v, Rs1: base, Rs2: base},
		&riscv.RTriInstr{Op: riscv.Add, Rd: sink, Rs1: v, Rs2: v},
		&riscv.RetInstr{},
	)

	sp := newSpiller(rf)
	sp.spill(map[int]bool{v.VReg: true}, false)

	var sawStore, sawLoad bool
	for _, inst := range b.Instrs {
		if mem, ok := inst.(*riscv.MemInstr); ok {
			if mem.Store {
				sawStore = true
			} else {
				sawLoad = true
			}
		}
	}
	if !sawStore || !sawLoad {
		t.Fatalf("expected both a spill store and a spill load, store=%v load=%v", sawStore, sawLoad)
	}
	if rf.FrameSize == 0 {
		t.Fatalf("spilling should have grown the frame")
	}
}

func TestSlotForReusesSameOffset(t *testing.T) {
	rf := riscv.NewFunction("f")
	sp := newSpiller(rf)
	first := sp.slotFor(5)
	second := sp.slotFor(5)
	if first != second {
		t.Fatalf("slotFor should reuse the slot for the same vreg: %d vs %d", first, second)
	}
	third := sp.slotFor(6)
	if third == first {
		t.Fatalf("slotFor handed out the same slot to two different vregs")
	}
}
